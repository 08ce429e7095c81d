package webhook

import "strings"

// Message is a raw checkout notification as consumed from the webhook topic.
type Message struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	TS      int64   `json:"ts"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is the structured part of a notification message.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Author      *Author      `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// Author identifies the embed author (typically the bot that sent the webhook).
type Author struct {
	Name string `json:"name"`
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Flatten returns the first embed (nil when the message has none) and the full
// textual representation of the message: content plus, for each embed, its
// title, description, author name and every field rendered as "Name\nValue",
// all newline-joined. The flattened text is what the parser's text strategies
// operate on.
func (m *Message) Flatten() (*Embed, string) {
	var parts []string
	if m.Content != "" {
		parts = append(parts, m.Content)
	}
	for i := range m.Embeds {
		e := &m.Embeds[i]
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		if e.Author != nil && e.Author.Name != "" {
			parts = append(parts, e.Author.Name)
		}
		for _, f := range e.Fields {
			parts = append(parts, f.Name+"\n"+f.Value)
		}
	}
	var first *Embed
	if len(m.Embeds) > 0 {
		first = &m.Embeds[0]
	}
	return first, strings.Join(parts, "\n")
}
