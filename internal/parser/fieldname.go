package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// FieldKey identifies a canonical checkout field.
type FieldKey string

const (
	KeySite        FieldKey = "site"
	KeyProduct     FieldKey = "product"
	KeyPrice       FieldKey = "price"
	KeyQuantity    FieldKey = "quantity"
	KeySKU         FieldKey = "sku"
	KeyMode        FieldKey = "mode"
	KeyFulfillment FieldKey = "fulfillment_type"
	KeyProfile     FieldKey = "profile"
	KeyOrderID     FieldKey = "order_id"
	KeyOrderEmail  FieldKey = "order_email"
	KeyOrderLink   FieldKey = "order_link"
	KeyAccount     FieldKey = "account"
)

// fieldLabels maps lowercased notification labels to canonical keys. Bots
// label the same field differently, so several labels collapse to one key.
var fieldLabels = map[string]FieldKey{
	"site":             KeySite,
	"product":          KeyProduct,
	"price":            KeyPrice,
	"qty":              KeyQuantity,
	"quantity":         KeyQuantity,
	"sku":              KeySKU,
	"mode":             KeyMode,
	"fulfillment type": KeyFulfillment,
	"fulfillment":      KeyFulfillment,
	"profile":          KeyProfile,
	"order id":         KeyOrderID,
	"order number":     KeyOrderID,
	"order #":          KeyOrderID,
	"order email":      KeyOrderEmail,
	"email":            KeyOrderEmail,
	"order link":       KeyOrderLink,
	"link":             KeyOrderLink,
	"account":          KeyAccount,
	"buy now atc?":     KeyMode,
	"buy now":          KeyMode,
}

// perItemKeys marks keys that vary per line item within a multi-item order.
// Every other key is shared across the whole order. This classification is a
// property of the key, never of the data.
var perItemKeys = map[FieldKey]bool{
	KeyProduct:  true,
	KeyPrice:    true,
	KeyQuantity: true,
	KeySKU:      true,
}

// numberedLabelRe matches labels like "Product (2)": letters/spaces, optional
// whitespace, then a parenthesized positive ordinal. Input is lowercased first.
var numberedLabelRe = regexp.MustCompile(`^([a-z][a-z ]*?)\s*\(([1-9][0-9]*)\)$`)

// parseFieldName resolves a raw label to a canonical key and a zero-based item
// index. "Product (2)" addresses the second item of a multi-item checkout;
// unnumbered labels address item 0. Returns ok=false for unknown labels.
func parseFieldName(label string) (FieldKey, int, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if m := numberedLabelRe.FindStringSubmatch(l); m != nil {
		if key, ok := fieldLabels[strings.TrimSpace(m[1])]; ok {
			n, err := strconv.Atoi(m[2])
			if err == nil {
				return key, n - 1, true
			}
		}
	}
	if key, ok := fieldLabels[l]; ok {
		return key, 0, true
	}
	return "", 0, false
}
