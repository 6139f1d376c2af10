package ai

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const advisorPrompt = `You are helping a shop employee answer a customer's price offer.

Rules:

* Answer with exactly one word first: ACCEPT or REJECT.
* If you answer REJECT, follow it with one counter price written as $<number>$, e.g. REJECT $120.00$.
* The counter price must be positive and higher than the offered price.
* Do not add explanations, markdown, or any other text.`

// OfferContext is what the advisor knows about a negotiation.
type OfferContext struct {
	ProductName        string
	ProductDescription string
	OfferedPrice       decimal.Decimal
	AttemptCounter     int
	MaxAttempts        int
}

// BuildAdvicePrompt joins the fixed instructions with the offer facts.
func BuildAdvicePrompt(o OfferContext) string {
	facts := fmt.Sprintf("Product: %s\nDescription: %s\nOffered price: %s\nEmployee responses so far: %d of %d",
		strings.TrimSpace(o.ProductName),
		strings.TrimSpace(o.ProductDescription),
		o.OfferedPrice.StringFixed(2),
		o.AttemptCounter,
		o.MaxAttempts,
	)
	return strings.Join([]string{advisorPrompt, facts}, "\n\n")
}
