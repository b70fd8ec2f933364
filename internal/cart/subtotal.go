package cart

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
)

type Subtotal struct {
	Currency string          `json:"currency"`
	Minor    int64           `json:"minor"`
	Amount   decimal.Decimal `json:"amount"`
}

func (s Subtotal) Display() string {
	return catalog.FormatAmount(&s.Minor, s.Currency)
}

func (it Item) LineDisplay() string {
	if it.UnitAmount == nil {
		return catalog.FormatAmount(nil, it.Currency)
	}
	line := *it.UnitAmount * int64(it.Quantity)
	return catalog.FormatAmount(&line, it.Currency)
}

// Subtotals sums line totals per currency. Lines without a unit amount are skipped.
func Subtotals(items []Item) []Subtotal {
	sums := map[string]int64{}
	for _, it := range items {
		if it.UnitAmount == nil {
			continue
		}
		cur := strings.ToLower(it.Currency)
		sums[cur] += *it.UnitAmount * int64(it.Quantity)
	}

	out := make([]Subtotal, 0, len(sums))
	for cur, minor := range sums {
		out = append(out, Subtotal{Currency: cur, Minor: minor, Amount: catalog.MajorUnits(minor, cur)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
