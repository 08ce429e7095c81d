package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"checkoutfeed/internal/webhook"
)

func main() {
	var count int
	var outputFile string
	var noise bool
	flag.IntVar(&count, "count", 100, "number of webhook messages to generate")
	flag.StringVar(&outputFile, "output", "cf.webhooks.raw.jsonl", "output file")
	flag.BoolVar(&noise, "noise", true, "mix in non-checkout messages")
	flag.Parse()

	if err := generateWebhooks(count, outputFile, noise); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

var (
	sites    = []string{"NikeStore", "ShopA", "ShopB", "Footsite"}
	products = []string{"Air Max 90", "Dunk Low", "Widget Pro", "Gadget Mini", "Yeezy 350"}
	skus     = []string{"CD0881-100", "DD1391-100", "GW2871", "HQ4540"}
)

func generateWebhooks(count int, outputFile string, noise bool) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	baseTime := time.Now().UTC().Unix()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	enc := json.NewEncoder(file)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("msg-%d", i+1)
		ts := baseTime + int64(i*10)
		var m webhook.Message
		variant := rng.Intn(5)
		if !noise && variant == 4 {
			variant = rng.Intn(4)
		}
		switch variant {
		case 0:
			m = embedMessage(rng, id, ts)
		case 1:
			m = linePairMessage(rng, id, ts)
		case 2:
			m = colonMessage(rng, id, ts)
		case 3:
			m = multiItemMessage(rng, id, ts)
		default:
			m = webhook.Message{ID: id, TS: ts, Content: "payment declined, card error"}
		}
		if err := enc.Encode(&m); err != nil {
			return fmt.Errorf("encode message %d: %w", i+1, err)
		}
	}

	log.Printf("generated %d webhook messages to %s", count, outputFile)
	return nil
}

func embedMessage(rng *rand.Rand, id string, ts int64) webhook.Message {
	return webhook.Message{
		ID: id,
		TS: ts,
		Embeds: []webhook.Embed{{
			Title: "Successful Checkout!",
			Fields: []webhook.EmbedField{
				{Name: "Site", Value: sites[rng.Intn(len(sites))]},
				{Name: "Product", Value: products[rng.Intn(len(products))]},
				{Name: "Price", Value: fmt.Sprintf("$%d.99", 20+rng.Intn(180))},
				{Name: "Qty", Value: fmt.Sprintf("%d", 1+rng.Intn(3))},
				{Name: "SKU", Value: "||" + skus[rng.Intn(len(skus))] + "||"},
			},
		}},
	}
}

func linePairMessage(rng *rand.Rand, id string, ts int64) webhook.Message {
	return webhook.Message{
		ID: id,
		TS: ts,
		Content: fmt.Sprintf("Successful checkout\nSite\n%s\nProduct\n%s\nPrice\n$%d.00\nQty\nx%d",
			sites[rng.Intn(len(sites))], products[rng.Intn(len(products))], 20+rng.Intn(180), 1+rng.Intn(3)),
	}
}

func colonMessage(rng *rand.Rand, id string, ts int64) webhook.Message {
	return webhook.Message{
		ID: id,
		TS: ts,
		Content: fmt.Sprintf("checkout success\nSite: %s\nProduct: %s\nPrice: %d.50 USD\nOrder ID: ORD-%d",
			sites[rng.Intn(len(sites))], products[rng.Intn(len(products))], 20+rng.Intn(180), 1000+rng.Intn(9000)),
	}
}

func multiItemMessage(rng *rand.Rand, id string, ts int64) webhook.Message {
	fields := []webhook.EmbedField{
		{Name: "Site", Value: sites[rng.Intn(len(sites))]},
		{Name: "Order Number", Value: fmt.Sprintf("ORD-%d", 1000+rng.Intn(9000))},
	}
	n := 2 + rng.Intn(2)
	for i := 1; i <= n; i++ {
		fields = append(fields,
			webhook.EmbedField{Name: fmt.Sprintf("Product (%d)", i), Value: products[rng.Intn(len(products))]},
			webhook.EmbedField{Name: fmt.Sprintf("Price (%d)", i), Value: fmt.Sprintf("$%d.00", 20+rng.Intn(180))},
			webhook.EmbedField{Name: fmt.Sprintf("Qty (%d)", i), Value: fmt.Sprintf("%d", 1+rng.Intn(3))},
		)
	}
	return webhook.Message{
		ID: id,
		TS: ts,
		Embeds: []webhook.Embed{{
			Title:  "Successful Checkout",
			Fields: fields,
		}},
	}
}
