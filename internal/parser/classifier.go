package parser

import (
	"strings"

	"checkoutfeed/internal/webhook"
)

// checkoutPhrases are the trigger substrings that mark a message as a
// completed-checkout notification.
var checkoutPhrases = []string{
	"successful checkout",
	"checkout success",
	"successfully checked out",
}

// IsSuccessfulCheckout reports whether the message is a successful-checkout
// notification worth parsing. It searches the embed title, description and
// author name plus the raw text, case-insensitively, for any trigger phrase.
func IsSuccessfulCheckout(embed *webhook.Embed, rawText string) bool {
	var b strings.Builder
	if embed != nil {
		b.WriteString(embed.Title)
		b.WriteByte('\n')
		b.WriteString(embed.Description)
		b.WriteByte('\n')
		if embed.Author != nil {
			b.WriteString(embed.Author.Name)
			b.WriteByte('\n')
		}
	}
	b.WriteString(rawText)
	haystack := strings.ToLower(b.String())
	for _, phrase := range checkoutPhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
