package enums

// CardBrand identifies the card network derived from the leading PAN digits.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "Visa"
	CardBrandMastercard CardBrand = "Mastercard"
	CardBrandAmex       CardBrand = "Amex"
	CardBrandDiscover   CardBrand = "Discover"
	CardBrandTroy       CardBrand = "Troy"
	CardBrandUnknown    CardBrand = "Unknown"
)

// String implements fmt.Stringer.
func (c CardBrand) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CardBrand.
func (c CardBrand) IsValid() bool {
	switch c {
	case CardBrandVisa, CardBrandMastercard, CardBrandAmex, CardBrandDiscover, CardBrandTroy, CardBrandUnknown:
		return true
	}
	return false
}
