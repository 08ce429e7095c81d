package parser

import (
	"testing"

	"checkoutfeed/internal/webhook"
)

func TestIsSuccessfulCheckout(t *testing.T) {
	if IsSuccessfulCheckout(nil, "") {
		t.Fatalf("empty input must not classify as checkout")
	}
	if IsSuccessfulCheckout(nil, "payment declined") {
		t.Fatalf("non-checkout text must not classify")
	}
	if !IsSuccessfulCheckout(nil, "SUCCESSFUL CHECKOUT on NikeStore!") {
		t.Fatalf("raw text trigger missed")
	}
	if !IsSuccessfulCheckout(&webhook.Embed{Title: "Checkout Success"}, "") {
		t.Fatalf("embed title trigger missed")
	}
	if !IsSuccessfulCheckout(&webhook.Embed{Description: "Item successfully checked out"}, "") {
		t.Fatalf("embed description trigger missed")
	}
	if !IsSuccessfulCheckout(&webhook.Embed{Author: &webhook.Author{Name: "Successful Checkout Bot"}}, "") {
		t.Fatalf("embed author trigger missed")
	}
}

func TestParseWebhookMessage_EndToEnd(t *testing.T) {
	raw := "Site\nNikeStore\nProduct\nAir Max\nPrice\n$100\nQty\n2"
	got := ParseWebhookMessage(nil, raw)
	if len(got) != 1 {
		t.Fatalf("want 1 purchase, got %d", len(got))
	}
	p := got[0]
	if p.Product != "Air Max" || p.Price != 100 || p.Quantity != 2 || p.Site != "NikeStore" {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if p.SKU != "" {
		t.Fatalf("sku should be empty, got %q", p.SKU)
	}
	if p.RawMessage != raw {
		t.Fatalf("raw message must be carried verbatim")
	}
}

func TestParseWebhookMessage_MultiItem(t *testing.T) {
	e := &webhook.Embed{Fields: []webhook.EmbedField{
		{Name: "Product (1)", Value: "Widget"},
		{Name: "Price (1)", Value: "$10"},
		{Name: "Product (2)", Value: "Gadget"},
		{Name: "Price (2)", Value: "$20"},
		{Name: "Site", Value: "ShopA"},
	}}
	got := ParseWebhookMessage(e, "")
	if len(got) != 2 {
		t.Fatalf("want 2 purchases, got %d", len(got))
	}
	if got[0].Product != "Widget" || got[0].Price != 10 {
		t.Fatalf("item 0: %+v", got[0])
	}
	if got[1].Product != "Gadget" || got[1].Price != 20 {
		t.Fatalf("item 1: %+v", got[1])
	}
	for i, p := range got {
		if p.Site != "ShopA" {
			t.Fatalf("item %d site=%q, shared fields must be identical", i, p.Site)
		}
	}
}

func TestParseWebhookMessage_SharedFieldsIdenticalAcrossItems(t *testing.T) {
	e := &webhook.Embed{Fields: []webhook.EmbedField{
		{Name: "Product (1)", Value: "A"},
		{Name: "Product (2)", Value: "B"},
		{Name: "Site", Value: "ShopA"},
		{Name: "Order ID", Value: "ORD-1"},
		{Name: "Account", Value: "acct@example.com"},
		{Name: "Profile", Value: "main"},
	}}
	raw := "whatever"
	got := ParseWebhookMessage(e, raw)
	if len(got) != 2 {
		t.Fatalf("want 2 purchases, got %d", len(got))
	}
	a, b := got[0], got[1]
	if a.Site != b.Site || a.OrderID != b.OrderID || a.Account != b.Account ||
		a.Profile != b.Profile || a.Mode != b.Mode || a.RawMessage != b.RawMessage {
		t.Fatalf("shared fields diverge: %+v vs %+v", a, b)
	}
}

func TestParseWebhookMessage_EmbedWinsOverText(t *testing.T) {
	e := &webhook.Embed{Fields: []webhook.EmbedField{
		{Name: "Site", Value: "EmbedShop"},
		{Name: "Product", Value: "EmbedProduct"},
	}}
	got := ParseWebhookMessage(e, "Site\nTextShop\nProduct\nTextProduct")
	if len(got) != 1 {
		t.Fatalf("want 1 purchase, got %d", len(got))
	}
	if got[0].Site != "EmbedShop" || got[0].Product != "EmbedProduct" {
		t.Fatalf("embed values must win: %+v", got[0])
	}
}

func TestParseWebhookMessage_SpoilerWrappedValues(t *testing.T) {
	got := ParseWebhookMessage(nil, "Site\n||NikeStore||\nProduct\n||Widget||\nSKU\n||DD1391||")
	if len(got) != 1 {
		t.Fatalf("want 1 purchase, got %d", len(got))
	}
	p := got[0]
	if p.Site != "NikeStore" || p.Product != "Widget" || p.SKU != "DD1391" {
		t.Fatalf("spoiler tags not stripped: %+v", p)
	}
}

func TestParseWebhookMessage_MissingRequiredFieldDropsItem(t *testing.T) {
	// No site anywhere.
	if got := ParseWebhookMessage(nil, "Product\nAir Max\nPrice\n$100"); len(got) != 0 {
		t.Fatalf("missing site must drop the item, got %+v", got)
	}
	// No product anywhere.
	if got := ParseWebhookMessage(nil, "Site\nNikeStore\nPrice\n$100"); len(got) != 0 {
		t.Fatalf("missing product must drop the item, got %+v", got)
	}
	// One of two items lacks a product; the other survives.
	e := &webhook.Embed{Fields: []webhook.EmbedField{
		{Name: "Product (1)", Value: "Widget"},
		{Name: "Price (2)", Value: "$20"},
		{Name: "Site", Value: "ShopA"},
	}}
	got := ParseWebhookMessage(e, "")
	if len(got) != 1 || got[0].Product != "Widget" {
		t.Fatalf("sibling item must survive: %+v", got)
	}
}

func TestParseWebhookMessage_DefaultsOnUnparseableNumbers(t *testing.T) {
	got := ParseWebhookMessage(nil, "Site\nShopA\nProduct\nWidget\nPrice\nfree\nQty\nlots")
	if len(got) != 1 {
		t.Fatalf("want 1 purchase, got %d", len(got))
	}
	if got[0].Price != 0 || got[0].Quantity != 1 {
		t.Fatalf("want price=0 qty=1 defaults, got %+v", got[0])
	}
}

func TestParseWebhookMessage_Empty(t *testing.T) {
	if got := ParseWebhookMessage(nil, ""); len(got) != 0 {
		t.Fatalf("empty input must yield no purchases, got %+v", got)
	}
}

func TestDebugInfo(t *testing.T) {
	got := ParseWebhookMessage(nil, "Site\nShopA\nProduct\nWidget\nPrice\n$12.50\nQty\nx3")
	if len(got) != 1 {
		t.Fatalf("want 1 purchase, got %d", len(got))
	}
	if s, want := DebugInfo(got[0]), "Product: Widget | Price: $12.5 | Qty: 3 | Site: ShopA"; s != want {
		t.Fatalf("debug info %q want %q", s, want)
	}

	p := got[0]
	p.SKU = "DD1391"
	p.OrderID = "ORD-9"
	s := DebugInfo(p)
	if want := "Product: Widget | Price: $12.5 | Qty: 3 | Site: ShopA | SKU: DD1391 | Order ID: ORD-9"; s != want {
		t.Fatalf("debug info %q want %q", s, want)
	}
}
