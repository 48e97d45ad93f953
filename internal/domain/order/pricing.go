package order

import "github.com/shopspring/decimal"

// Pricing holds the checkout pricing rules. Amounts are whole currency units.
type Pricing struct {
	Currency              string
	FreeShippingThreshold int64
	ShippingFee           int64
	TaxRate               decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		Currency:              "INR",
		FreeShippingThreshold: 1000,
		ShippingFee:           50,
		TaxRate:               decimal.RequireFromString("0.05"),
	}
}

type Totals struct {
	Subtotal     int64
	ShippingCost int64
	Tax          int64
	Total        int64
}

// Quote prices items. Shipping is free strictly above the threshold; tax rounds half away from zero.
func (p Pricing) Quote(items []Item) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotal()
	}

	shipping := p.ShippingFee
	if subtotal > p.FreeShippingThreshold {
		shipping = 0
	}

	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal + shipping + tax,
	}
}
