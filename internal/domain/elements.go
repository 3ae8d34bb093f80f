package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownGroupKey is the bucket for elements missing the grouping attribute.
const UnknownGroupKey = "Unknown"

// ElementGroupKey selects the attribute elements are grouped by
type ElementGroupKey string

const (
	ElementGroupByType     ElementGroupKey = "type"
	ElementGroupByMaterial ElementGroupKey = "materials"
	ElementGroupByDocument ElementGroupKey = "sourceDocumentId"
)

// IsValid checks if the ElementGroupKey is a valid enum value
func (k ElementGroupKey) IsValid() bool {
	switch k {
	case ElementGroupByType, ElementGroupByMaterial, ElementGroupByDocument:
		return true
	}
	return false
}

// ElementFilter is a structural predicate over project elements.
// Type and Materials match exactly; SearchTerm is a case-insensitive
// substring match across type, materials, dimensions and notes.
type ElementFilter struct {
	Type       string
	Materials  string
	SearchTerm string
}

// IsZero reports whether the filter matches everything.
func (f ElementFilter) IsZero() bool {
	return f.Type == "" && f.Materials == "" && f.SearchTerm == ""
}

// Matches reports whether the element satisfies the filter.
func (f ElementFilter) Matches(e *Element) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Materials != "" && e.Materials != f.Materials {
		return false
	}
	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		if !strings.Contains(strings.ToLower(e.Type), term) &&
			!strings.Contains(strings.ToLower(e.Materials), term) &&
			!strings.Contains(strings.ToLower(e.Dimensions), term) &&
			!strings.Contains(strings.ToLower(e.Notes), term) {
			return false
		}
	}
	return true
}

// QuantityValue parses the free-form quantity when numeric and falls
// back to one otherwise ("ca. 12" and "" both count as one unit).
func (e *Element) QuantityValue() decimal.Decimal {
	raw := strings.TrimSpace(e.Quantity)
	if raw == "" {
		return decimal.NewFromInt(1)
	}
	quantity, err := decimal.NewFromString(raw)
	if err != nil || quantity.IsNegative() || quantity.IsZero() {
		return decimal.NewFromInt(1)
	}
	return quantity
}

// UnitEstimate returns the estimated unit price, zero when absent.
func (e *Element) UnitEstimate() decimal.Decimal {
	if e.EstimatedPrice == nil {
		return decimal.Zero
	}
	return *e.EstimatedPrice
}

// EstimatedCost is quantity times unit estimate rounded to two decimals.
func (e *Element) EstimatedCost() decimal.Decimal {
	return e.QuantityValue().Mul(e.UnitEstimate()).Round(2)
}

// ElementGroup is one partition of a grouped element collection
type ElementGroup struct {
	Key      string
	Elements []Element
}

func elementGroupValue(e *Element, key ElementGroupKey) string {
	switch key {
	case ElementGroupByType:
		return e.Type
	case ElementGroupByMaterial:
		return e.Materials
	case ElementGroupByDocument:
		return e.DocumentID.String()
	}
	return ""
}

// GroupElements partitions elements by the chosen attribute. Elements
// with a missing value land in the "Unknown" bucket. Groups are sorted
// lexicographically by key; insertion order is preserved within a group.
func GroupElements(elements []Element, key ElementGroupKey) []ElementGroup {
	buckets := make(map[string][]Element)
	for _, e := range elements {
		k := elementGroupValue(&e, key)
		if k == "" {
			k = UnknownGroupKey
		}
		buckets[k] = append(buckets[k], e)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]ElementGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, ElementGroup{Key: k, Elements: buckets[k]})
	}
	return groups
}

// KeyCount is a count for one attribute value
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ElementStatistics summarizes an element collection
type ElementStatistics struct {
	TotalCount          int             `json:"totalCount"`
	TypeCounts          []KeyCount      `json:"typeCounts"`
	MaterialCounts      []KeyCount      `json:"materialCounts"`
	TotalEstimatedPrice decimal.Decimal `json:"totalEstimatedPrice"`
}

func sortedCounts(counts map[string]int) []KeyCount {
	out := make([]KeyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, KeyCount{Key: k, Count: c})
	}
	// Descending by count, ties broken lexicographically.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ComputeElementStatistics returns per-type and per-material counts
// sorted descending by count, plus totals across the collection.
func ComputeElementStatistics(elements []Element) ElementStatistics {
	typeCounts := make(map[string]int)
	materialCounts := make(map[string]int)
	totalPrice := decimal.Zero

	for _, e := range elements {
		t := e.Type
		if t == "" {
			t = UnknownGroupKey
		}
		typeCounts[t]++

		m := e.Materials
		if m == "" {
			m = UnknownGroupKey
		}
		materialCounts[m]++

		if e.EstimatedPrice != nil {
			totalPrice = totalPrice.Add(*e.EstimatedPrice)
		}
	}

	return ElementStatistics{
		TotalCount:          len(elements),
		TypeCounts:          sortedCounts(typeCounts),
		MaterialCounts:      sortedCounts(materialCounts),
		TotalEstimatedPrice: totalPrice,
	}
}
