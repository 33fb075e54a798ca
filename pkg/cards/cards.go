package cards

import (
	"strconv"
	"strings"

	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
)

// Classification holds everything the platform is allowed to retain about a
// card. Callers must discard the raw number immediately after classifying.
type Classification struct {
	Last4 string
	Brand enums.CardBrand
}

// Classify derives the last four digits and the network brand from a raw card
// number. The input is never stored or logged.
func Classify(number string) (Classification, error) {
	digits := digitsOnly(number)
	if len(digits) < 4 {
		return Classification{}, pkgerrors.New(pkgerrors.CodeValidation, "card number must contain at least 4 digits")
	}
	return Classification{
		Last4: digits[len(digits)-4:],
		Brand: brandForPrefix(digits),
	}, nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func brandForPrefix(digits string) enums.CardBrand {
	switch {
	case strings.HasPrefix(digits, "4"):
		return enums.CardBrandVisa
	case inRange(digits, 2, 51, 55), inRange(digits, 4, 2221, 2720):
		return enums.CardBrandMastercard
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return enums.CardBrandAmex
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"), inRange(digits, 3, 644, 649):
		return enums.CardBrandDiscover
	case strings.HasPrefix(digits, "9792"):
		return enums.CardBrandTroy
	}
	return enums.CardBrandUnknown
}

func inRange(digits string, width, low, high int) bool {
	if len(digits) < width {
		return false
	}
	prefix, err := strconv.Atoi(digits[:width])
	if err != nil {
		return false
	}
	return prefix >= low && prefix <= high
}
