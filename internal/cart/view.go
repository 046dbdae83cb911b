package cart

import "github.com/shopspring/decimal"

type LineView struct {
	Item
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View is the cart as a client renders it: lines with subtotals and the
// grand total.
type View struct {
	Items []LineView      `json:"items"`
	Lines int             `json:"lines"`
	Units int             `json:"units"`
	Total decimal.Decimal `json:"total"`
}

func NewView(items []Item) View {
	v := View{
		Items: make([]LineView, 0, len(items)),
		Total: decimal.Zero,
	}
	for _, it := range items {
		sub := it.Price.Mul(decimal.NewFromInt(int64(it.Amount)))
		v.Items = append(v.Items, LineView{Item: it, Subtotal: sub})
		v.Total = v.Total.Add(sub)
		v.Units += it.Amount
	}
	v.Lines = len(v.Items)
	return v
}

// Summary renders the current cart.
func (s *Service) Summary() View {
	return NewView(s.Items())
}
