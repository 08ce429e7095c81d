package parser

import (
	"regexp"
	"strings"

	"checkoutfeed/internal/webhook"
)

// fieldSet accumulates extracted fields from one source: order-wide shared
// values plus per-item values keyed by item index.
type fieldSet struct {
	shared map[FieldKey]string
	items  map[int]map[FieldKey]string
}

func newFieldSet() *fieldSet {
	return &fieldSet{
		shared: make(map[FieldKey]string),
		items:  make(map[int]map[FieldKey]string),
	}
}

// setShared records a shared value unless one is already present.
func (s *fieldSet) setShared(key FieldKey, value string) {
	if _, ok := s.shared[key]; !ok {
		s.shared[key] = value
	}
}

func (s *fieldSet) item(idx int) map[FieldKey]string {
	m, ok := s.items[idx]
	if !ok {
		m = make(map[FieldKey]string)
		s.items[idx] = m
	}
	return m
}

// setItem records a per-item value unless one is already present for the index.
func (s *fieldSet) setItem(idx int, key FieldKey, value string) {
	m := s.item(idx)
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// setItemForce records a per-item value, overwriting any earlier one.
func (s *fieldSet) setItemForce(idx int, key FieldKey, value string) {
	s.item(idx)[key] = value
}

// record routes a resolved field into the shared or per-item map,
// first-write-wins in both arms.
func (s *fieldSet) record(key FieldKey, idx int, value string) {
	if perItemKeys[key] {
		s.setItem(idx, key, value)
	} else {
		s.setShared(key, value)
	}
}

// extractFromEmbed collects fields from the structured embed field list.
// Within this pass the first value seen for a key wins.
func extractFromEmbed(embed *webhook.Embed) *fieldSet {
	s := newFieldSet()
	if embed == nil {
		return s
	}
	for _, f := range embed.Fields {
		key, idx, ok := parseFieldName(f.Name)
		if !ok {
			continue
		}
		s.record(key, idx, strings.TrimSpace(f.Value))
	}
	return s
}

// colonFieldRe matches "Label: value" within a single line. The label starts
// with a letter and may contain letters, digits, spaces, '#' and parentheses;
// the value is the remainder of the line.
var colonFieldRe = regexp.MustCompile(`([A-Za-z][A-Za-z0-9 #()]*):([^\n]*)`)

// labelValue is one raw label/value pair found by a text scan, before field
// name resolution.
type labelValue struct {
	label string
	value string
}

// scanColonFields returns all non-overlapping "Label: value" pairs in the
// text, values trimmed, empty values dropped.
func scanColonFields(text string) []labelValue {
	var out []labelValue
	for _, m := range colonFieldRe.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		out = append(out, labelValue{label: m[1], value: value})
	}
	return out
}

// nonEmptyLines splits text into trimmed non-empty lines.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// extractFromText collects fields from the raw message text using two
// strategies over the same text. The line-pair strategy ("Name\nValue") runs
// first; the colon strategy ("Name: Value") then only fills keys the first
// pass left empty.
//
// Known quirk, kept for compatibility with existing notification history: the
// line-pair arm overwrites per-item values on a repeated label while every
// other arm is first-write-wins.
func extractFromText(text string) *fieldSet {
	s := newFieldSet()

	lines := nonEmptyLines(text)
	for i := 0; i < len(lines); i++ {
		key, idx, ok := parseFieldName(lines[i])
		if !ok || i+1 >= len(lines) {
			continue
		}
		// Do not swallow a following field-name line as a value.
		if _, _, next := parseFieldName(lines[i+1]); next {
			continue
		}
		value := lines[i+1]
		if perItemKeys[key] {
			s.setItemForce(idx, key, value)
		} else {
			s.setShared(key, value)
		}
		i++ // skip the consumed value line
	}

	for _, lv := range scanColonFields(text) {
		key, idx, ok := parseFieldName(lv.label)
		if !ok {
			continue
		}
		s.record(key, idx, lv.value)
	}

	return s
}
