package purchase

import "fmt"

// Purchase is one normalized line item parsed from a checkout notification.
// Optional fields are empty strings when the notification did not carry them.
// RawMessage holds the verbatim flattened message text and is identical for
// every item parsed from the same message.
type Purchase struct {
	Product         string  `json:"product"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Site            string  `json:"site"`
	SKU             string  `json:"sku,omitempty"`
	Mode            string  `json:"mode,omitempty"`
	FulfillmentType string  `json:"fulfillmentType,omitempty"`
	Profile         string  `json:"profile,omitempty"`
	OrderID         string  `json:"orderId,omitempty"`
	OrderEmail      string  `json:"orderEmail,omitempty"`
	OrderLink       string  `json:"orderLink,omitempty"`
	Account         string  `json:"account,omitempty"`
	RawMessage      string  `json:"rawMessageText"`
}

// Record is the unit handed to the sink: a purchase plus its unique identifier
// and purchase timestamp (epoch seconds). The ID is the dedup key at the
// storage layer.
type Record struct {
	ID          string `json:"id"`
	PurchasedAt int64  `json:"purchasedAt"`
	Purchase
}

// ItemID derives the sink identifier for item idx of a message that produced
// total items. Single-item messages reuse the message ID unchanged; multi-item
// messages get a _<index> suffix per item.
func ItemID(messageID string, idx int, total int) string {
	if total <= 1 {
		return messageID
	}
	return fmt.Sprintf("%s_%d", messageID, idx)
}
