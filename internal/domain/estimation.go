package domain

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstimateLine is the accumulated cost for one element type.
type EstimateLine struct {
	Key  string
	Cost decimal.Decimal
}

// DocumentEstimateLine is the accumulated cost of one source document's
// elements.
type DocumentEstimateLine struct {
	DocumentID uuid.UUID
	Cost       decimal.Decimal
}

// ProjectEstimate is the priced summary of a project's element pool.
// DirectCost is the sum of per-element costs; overhead is applied on
// the direct cost and profit on direct plus overhead.
type ProjectEstimate struct {
	ElementCount    int
	DirectCost      decimal.Decimal
	OverheadPercent decimal.Decimal
	OverheadCost    decimal.Decimal
	ProfitPercent   decimal.Decimal
	ProfitAmount    decimal.Decimal
	TotalCost       decimal.Decimal
	ByElementType   []EstimateLine
	ByDocument      []DocumentEstimateLine
}

// ComputeProjectEstimate prices an element pool. Per-element cost is
// the element's EstimatedCost; elements without a type bucket under
// "Unknown". Breakdown lines are sorted by cost descending, ties
// lexicographically. Percentages must be non-negative; callers
// validate before computing.
func ComputeProjectEstimate(elements []Element, overheadPercent, profitPercent decimal.Decimal) ProjectEstimate {
	hundred := decimal.NewFromInt(100)

	direct := decimal.Zero
	typeCosts := make(map[string]decimal.Decimal)
	documentCosts := make(map[uuid.UUID]decimal.Decimal)

	for _, e := range elements {
		cost := e.EstimatedCost()
		direct = direct.Add(cost)

		t := e.Type
		if t == "" {
			t = UnknownGroupKey
		}
		typeCosts[t] = typeCosts[t].Add(cost)
		documentCosts[e.DocumentID] = documentCosts[e.DocumentID].Add(cost)
	}

	overhead := direct.Mul(overheadPercent).Div(hundred).Round(2)
	profit := direct.Add(overhead).Mul(profitPercent).Div(hundred).Round(2)

	byType := make([]EstimateLine, 0, len(typeCosts))
	for key, cost := range typeCosts {
		byType = append(byType, EstimateLine{Key: key, Cost: cost})
	}
	sort.Slice(byType, func(i, j int) bool {
		if !byType[i].Cost.Equal(byType[j].Cost) {
			return byType[i].Cost.GreaterThan(byType[j].Cost)
		}
		return byType[i].Key < byType[j].Key
	})

	byDocument := make([]DocumentEstimateLine, 0, len(documentCosts))
	for id, cost := range documentCosts {
		byDocument = append(byDocument, DocumentEstimateLine{DocumentID: id, Cost: cost})
	}
	sort.Slice(byDocument, func(i, j int) bool {
		if !byDocument[i].Cost.Equal(byDocument[j].Cost) {
			return byDocument[i].Cost.GreaterThan(byDocument[j].Cost)
		}
		return byDocument[i].DocumentID.String() < byDocument[j].DocumentID.String()
	})

	return ProjectEstimate{
		ElementCount:    len(elements),
		DirectCost:      direct,
		OverheadPercent: overheadPercent,
		OverheadCost:    overhead,
		ProfitPercent:   profitPercent,
		ProfitAmount:    profit,
		TotalCost:       direct.Add(overhead).Add(profit),
		ByElementType:   byType,
		ByDocument:      byDocument,
	}
}
