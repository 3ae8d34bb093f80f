package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byggkalk/quotation-api/internal/domain"
)

func pricedElem(docID uuid.UUID, typ, quantity, price string) domain.Element {
	e := domain.Element{DocumentID: docID, Type: typ, Quantity: quantity}
	if price != "" {
		p := decimal.RequireFromString(price)
		e.EstimatedPrice = &p
	}
	return e
}

func TestElementEstimatedCost(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		price    string
		want     string
	}{
		{"numeric quantity", "3", "1500", "4500.00"},
		{"empty quantity counts as one", "", "80", "80.00"},
		{"unparseable quantity counts as one", "ca. 12", "80", "80.00"},
		{"missing price is zero", "4", "", "0.00"},
		{"fractional result rounds to two decimals", "2.5", "9.99", "24.98"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := pricedElem(uuid.New(), "wall", tt.quantity, tt.price)
			assert.Equal(t, tt.want, e.EstimatedCost().StringFixed(2))
		})
	}
}

func TestComputeProjectEstimate(t *testing.T) {
	groundFloor := uuid.New()
	roofPlan := uuid.New()

	elements := []domain.Element{
		pricedElem(groundFloor, "wall", "2", "100"),
		pricedElem(groundFloor, "wall", "3", "50"),
		pricedElem(roofPlan, "", "ca. 4", "80"),
	}

	estimate := domain.ComputeProjectEstimate(elements,
		decimal.NewFromInt(10), decimal.NewFromInt(15))

	assert.Equal(t, 3, estimate.ElementCount)
	assert.Equal(t, "430.00", estimate.DirectCost.StringFixed(2))
	assert.Equal(t, "43.00", estimate.OverheadCost.StringFixed(2))
	// Profit applies on direct plus overhead.
	assert.Equal(t, "70.95", estimate.ProfitAmount.StringFixed(2))
	assert.Equal(t, "543.95", estimate.TotalCost.StringFixed(2))

	require.Len(t, estimate.ByElementType, 2)
	assert.Equal(t, "wall", estimate.ByElementType[0].Key)
	assert.Equal(t, "350.00", estimate.ByElementType[0].Cost.StringFixed(2))
	assert.Equal(t, domain.UnknownGroupKey, estimate.ByElementType[1].Key)
	assert.Equal(t, "80.00", estimate.ByElementType[1].Cost.StringFixed(2))

	require.Len(t, estimate.ByDocument, 2)
	assert.Equal(t, groundFloor, estimate.ByDocument[0].DocumentID)
	assert.Equal(t, "350.00", estimate.ByDocument[0].Cost.StringFixed(2))
	assert.Equal(t, roofPlan, estimate.ByDocument[1].DocumentID)
	assert.Equal(t, "80.00", estimate.ByDocument[1].Cost.StringFixed(2))
}

func TestComputeProjectEstimateZeroMarkups(t *testing.T) {
	docID := uuid.New()
	elements := []domain.Element{pricedElem(docID, "door", "1", "80")}

	estimate := domain.ComputeProjectEstimate(elements, decimal.Zero, decimal.Zero)

	assert.Equal(t, "80.00", estimate.DirectCost.StringFixed(2))
	assert.Equal(t, "0.00", estimate.OverheadCost.StringFixed(2))
	assert.Equal(t, "0.00", estimate.ProfitAmount.StringFixed(2))
	assert.Equal(t, "80.00", estimate.TotalCost.StringFixed(2))
}
