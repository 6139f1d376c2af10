package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
)

var (
	pricePattern   = regexp.MustCompile(`\$([0-9]+(?:\.[0-9]+)?)\$`)
	verdictPattern = regexp.MustCompile(`(?i)\b(accept|reject)\b`)
	ErrParseFailed = errors.New("parse_failed")
)

// ParseAdvice reads the first ACCEPT/REJECT word and an optional $<number>$ counter price.
func ParseAdvice(text string) (Verdict, *decimal.Decimal, error) {
	m := verdictPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", nil, fmt.Errorf("%w: no verdict found", ErrParseFailed)
	}
	verdict := Verdict(strings.ToLower(m[1]))

	pm := pricePattern.FindStringSubmatch(text)
	if len(pm) < 2 {
		return verdict, nil, nil
	}
	price, err := decimal.NewFromString(pm[1])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if !price.IsPositive() {
		return verdict, nil, nil
	}
	return verdict, &price, nil
}
