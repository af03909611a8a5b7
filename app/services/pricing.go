package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ShippingInside  = "inside"
	ShippingOutside = "outside"
)

var (
	insideValleyRate  = decimal.RequireFromString("119.99")
	outsideValleyRate = decimal.RequireFromString("249.99")
)

// Shipping returns the flat rate and label for a shipping method. Anything
// other than "outside" ships at the inside-valley rate.
func Shipping(method string) (decimal.Decimal, string) {
	if strings.EqualFold(strings.TrimSpace(method), ShippingOutside) {
		return outsideValleyRate, "Outside Valley"
	}
	return insideValleyRate, "Inside Valley"
}

// LineTotal is price × quantity rounded to cents.
func LineTotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Totals is the money summary shared by quotes, orders and the email.
type Totals struct {
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	ShippingLabel string
	Total         decimal.Decimal
}

func ComputeTotals(lines []LinePrice, shippingMethod string) Totals {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(LineTotal(l.Price, l.Quantity))
	}
	ship, label := Shipping(shippingMethod)
	return Totals{
		Subtotal:      sub.Round(2),
		Shipping:      ship,
		ShippingLabel: label,
		Total:         sub.Add(ship).Round(2),
	}
}

type LinePrice struct {
	Price    float64
	Quantity int
}

// Float converts for storage; documents keep money as doubles.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
