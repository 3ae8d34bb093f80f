package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func item(quantity, unitPrice string) domain.QuoteItem {
	return domain.QuoteItem{Quantity: dec(quantity), UnitPrice: dec(unitPrice)}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name            string
		items           []domain.QuoteItem
		taxRate         string
		discountPercent string
		wantSubtotal    string
		wantTax         string
		wantDiscount    string
		wantTotal       string
	}{
		{
			name:            "two items with tax and discount",
			items:           []domain.QuoteItem{item("2", "100.00"), item("1", "50.00")},
			taxRate:         "10",
			discountPercent: "5",
			wantSubtotal:    "250.00",
			wantTax:         "25.00",
			wantDiscount:    "12.50",
			wantTotal:       "262.50",
		},
		{
			name:            "no items yields all zeros",
			items:           nil,
			taxRate:         "25",
			discountPercent: "10",
			wantSubtotal:    "0.00",
			wantTax:         "0.00",
			wantDiscount:    "0.00",
			wantTotal:       "0.00",
		},
		{
			name:            "zero rates",
			items:           []domain.QuoteItem{item("3", "19.99")},
			taxRate:         "0",
			discountPercent: "0",
			wantSubtotal:    "59.97",
			wantTax:         "0.00",
			wantDiscount:    "0.00",
			wantTotal:       "59.97",
		},
		{
			name:            "line totals round before summation",
			items:           []domain.QuoteItem{item("1", "0.333"), item("1", "0.333"), item("1", "0.333")},
			taxRate:         "0",
			discountPercent: "0",
			wantSubtotal:    "0.99",
			wantTax:         "0.00",
			wantDiscount:    "0.00",
			wantTotal:       "0.99",
		},
		{
			name:            "fractional quantity",
			items:           []domain.QuoteItem{item("2.5", "10.01")},
			taxRate:         "25",
			discountPercent: "0",
			wantSubtotal:    "25.03",
			wantTax:         "6.26",
			wantDiscount:    "0.00",
			wantTotal:       "31.29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := pricing.Compute(tt.items, dec(tt.taxRate), dec(tt.discountPercent))
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubtotal, totals.Subtotal.StringFixed(2))
			assert.Equal(t, tt.wantTax, totals.TaxAmount.StringFixed(2))
			assert.Equal(t, tt.wantDiscount, totals.DiscountAmount.StringFixed(2))
			assert.Equal(t, tt.wantTotal, totals.Total.StringFixed(2))

			// total = subtotal + tax - discount must hold exactly
			expected := totals.Subtotal.Add(totals.TaxAmount).Sub(totals.DiscountAmount)
			assert.True(t, totals.Total.Equal(expected))
		})
	}
}

func TestComputeRejectsNegativeInputs(t *testing.T) {
	items := []domain.QuoteItem{item("1", "100.00")}

	_, err := pricing.Compute(items, dec("-1"), dec("0"))
	assert.ErrorIs(t, err, pricing.ErrInvalidParameters)

	_, err = pricing.Compute(items, dec("0"), dec("-5"))
	assert.ErrorIs(t, err, pricing.ErrInvalidParameters)

	_, err = pricing.Compute([]domain.QuoteItem{item("-1", "100.00")}, dec("0"), dec("0"))
	assert.ErrorIs(t, err, pricing.ErrInvalidParameters)

	_, err = pricing.Compute([]domain.QuoteItem{item("1", "-100.00")}, dec("0"), dec("0"))
	assert.ErrorIs(t, err, pricing.ErrInvalidParameters)
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []domain.QuoteItem{item("2", "100.00"), item("1", "50.00"), item("7", "3.33")}

	first, err := pricing.Compute(items, dec("25"), dec("12.5"))
	require.NoError(t, err)

	second, err := pricing.Compute(items, dec("25"), dec("12.5"))
	require.NoError(t, err)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	assert.True(t, first.Total.Equal(second.Total))
}

func TestApply(t *testing.T) {
	quote := &domain.Quote{
		TaxRate:         dec("10"),
		DiscountPercent: dec("5"),
		Items: []domain.QuoteItem{
			item("2", "100.00"),
			item("1", "50.00"),
		},
	}

	require.NoError(t, pricing.Apply(quote))

	assert.Equal(t, "200.00", quote.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "50.00", quote.Items[1].LineTotal.StringFixed(2))
	assert.Equal(t, "250.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", quote.TaxAmount.StringFixed(2))
	assert.Equal(t, "12.50", quote.DiscountAmount.StringFixed(2))
	assert.Equal(t, "262.50", quote.Total.StringFixed(2))
}

func TestApplyLeavesQuoteUnchangedOnError(t *testing.T) {
	quote := &domain.Quote{
		TaxRate:  dec("-10"),
		Subtotal: dec("99.00"),
		Total:    dec("99.00"),
		Items:    []domain.QuoteItem{item("1", "10.00")},
	}

	err := pricing.Apply(quote)
	assert.ErrorIs(t, err, pricing.ErrInvalidParameters)
	assert.Equal(t, "99.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "99.00", quote.Total.StringFixed(2))
	assert.True(t, quote.Items[0].LineTotal.IsZero())
}
