// Package parser turns raw checkout notifications into normalized purchases.
//
// A notification carries the same data in up to two representations: loosely
// formatted text lines and structured embed field/value pairs. Both are
// extracted independently, merged with embed values taking priority, cleansed
// (spoiler tags, currency and quantity noise) and validated before purchases
// are emitted. All stages are pure; a parse call holds no state across calls
// and is safe to invoke concurrently.
package parser

import (
	"fmt"
	"sort"
	"strconv"

	"checkoutfeed/internal/purchase"
	"checkoutfeed/internal/webhook"
)

// ParseWebhookMessage extracts zero or more purchases from a notification.
// Items are returned in ascending item-index order. Items missing a product
// or site after cleansing are dropped; an empty result is a normal outcome,
// not an error.
func ParseWebhookMessage(embed *webhook.Embed, rawText string) []purchase.Purchase {
	text := extractFromText(rawText)
	emb := extractFromEmbed(embed)

	// Embed is the higher-priority source: its values overlay text values.
	shared := make(map[FieldKey]string, len(text.shared))
	for k, v := range text.shared {
		shared[k] = v
	}
	for k, v := range emb.shared {
		shared[k] = v
	}

	items := make(map[int]map[FieldKey]string, len(text.items))
	for idx, m := range text.items {
		merged := make(map[FieldKey]string, len(m))
		for k, v := range m {
			merged[k] = v
		}
		items[idx] = merged
	}
	for idx, m := range emb.items {
		merged, ok := items[idx]
		if !ok {
			merged = make(map[FieldKey]string, len(m))
			items[idx] = merged
		}
		for k, v := range m {
			merged[k] = v
		}
	}

	// Single-item checkouts reported only via shared-style fields carry no
	// item index at all; synthesize item 0.
	if len(items) == 0 {
		items[0] = make(map[FieldKey]string)
	}

	idxs := make([]int, 0, len(items))
	for idx := range items {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	var out []purchase.Purchase
	for _, idx := range idxs {
		f := items[idx]
		price := f[KeyPrice]
		if price == "" {
			price = "0"
		}
		qty := f[KeyQuantity]
		if qty == "" {
			qty = "1"
		}
		p := purchase.Purchase{
			Product:         stripSpoiler(f[KeyProduct]),
			Price:           parsePrice(price),
			Quantity:        parseQuantity(qty),
			SKU:             stripSpoiler(f[KeySKU]),
			Site:            stripSpoiler(shared[KeySite]),
			Mode:            stripSpoiler(shared[KeyMode]),
			FulfillmentType: stripSpoiler(shared[KeyFulfillment]),
			Profile:         stripSpoiler(shared[KeyProfile]),
			OrderID:         stripSpoiler(shared[KeyOrderID]),
			OrderEmail:      stripSpoiler(shared[KeyOrderEmail]),
			OrderLink:       stripSpoiler(shared[KeyOrderLink]),
			Account:         stripSpoiler(shared[KeyAccount]),
			RawMessage:      rawText,
		}
		// Product and site are the only required fields.
		if p.Product == "" || p.Site == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DebugInfo renders a one-line human-readable summary of a parsed purchase.
// Diagnostics only; never parsed elsewhere.
func DebugInfo(p purchase.Purchase) string {
	s := fmt.Sprintf("Product: %s | Price: $%s | Qty: %d | Site: %s",
		p.Product, strconv.FormatFloat(p.Price, 'f', -1, 64), p.Quantity, p.Site)
	if p.SKU != "" {
		s += " | SKU: " + p.SKU
	}
	if p.OrderID != "" {
		s += " | Order ID: " + p.OrderID
	}
	return s
}
