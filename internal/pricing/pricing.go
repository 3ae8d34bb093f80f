// Package pricing derives quote totals from line items and rates.
// All functions are pure and safe for concurrent use across quotes;
// recomputation for the same quote must be serialized by the caller.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/byggkalk/quotation-api/internal/domain"
)

// ErrInvalidParameters is returned when a quantity, unit price, tax
// rate or discount percentage is negative. Nothing is mutated in that
// case.
var ErrInvalidParameters = errors.New("negative quantity, price, tax rate or discount")

var hundred = decimal.NewFromInt(100)

// Totals is the full set of derived monetary fields for a quote
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// LineTotal computes quantity times unit price rounded to two decimal
// places. Rounding happens per line, before summation, so the subtotal
// matches what currency displays show for the individual rows.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// Compute derives subtotal, tax, discount and total from the given
// line items and rates:
//
//	subtotal = sum of rounded line totals
//	taxAmount = subtotal * taxRate / 100
//	discountAmount = subtotal * discountPercent / 100
//	total = subtotal + taxAmount - discountAmount
//
// An empty item list yields all-zero totals. Negative inputs are
// rejected with ErrInvalidParameters before anything is computed.
func Compute(items []domain.QuoteItem, taxRate, discountPercent decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() || discountPercent.IsNegative() {
		return Totals{}, ErrInvalidParameters
	}
	for i := range items {
		if items[i].Quantity.IsNegative() || items[i].UnitPrice.IsNegative() {
			return Totals{}, ErrInvalidParameters
		}
	}

	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(LineTotal(items[i].Quantity, items[i].UnitPrice))
	}

	taxAmount := subtotal.Mul(taxRate).Div(hundred).Round(2)
	discountAmount := subtotal.Mul(discountPercent).Div(hundred).Round(2)

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		Total:          subtotal.Add(taxAmount).Sub(discountAmount),
	}, nil
}

// Apply recomputes every item's line total and the quote's derived
// fields in place. The caller persists the quote and its items in the
// same transaction as the mutation that triggered the recompute.
func Apply(quote *domain.Quote) error {
	totals, err := Compute(quote.Items, quote.TaxRate, quote.DiscountPercent)
	if err != nil {
		return err
	}
	for i := range quote.Items {
		quote.Items[i].LineTotal = LineTotal(quote.Items[i].Quantity, quote.Items[i].UnitPrice)
	}
	quote.Subtotal = totals.Subtotal
	quote.TaxAmount = totals.TaxAmount
	quote.DiscountAmount = totals.DiscountAmount
	quote.Total = totals.Total
	return nil
}
