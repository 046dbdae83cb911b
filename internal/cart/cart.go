// Package cart holds a single shopper's cart: the items picked so far, the
// three operations that change them, and the write-through persistence that
// lets the cart survive a restart.
package cart

import "github.com/shopspring/decimal"

// Product is the catalog data a cart line copies when it is first added.
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Item is one cart line. Amount is at least 1 while the line exists.
type Item struct {
	Product
	Amount int `json:"amount"`
}

// Stock is the quantity the catalog has on hand for a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// UpdateAmount sets an absolute quantity, not a delta.
type UpdateAmount struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// Op names a cart operation in notifications and metrics.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
)

// Outcome says how an operation ended. Only Committed changes the cart.
type Outcome int

const (
	Committed Outcome = iota
	// Ignored is the silent no-op for a non-positive update amount.
	Ignored
	StockExceeded
	NotFound
	RemoteFailure
	StorageFailure
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Ignored:
		return "ignored"
	case StockExceeded:
		return "stock_exceeded"
	case NotFound:
		return "not_found"
	case RemoteFailure:
		return "remote_failure"
	case StorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

const (
	msgStockExceeded = "requested quantity exceeds stock"
	msgAddFailed     = "failed to add product"
	msgRemoveFailed  = "failed to remove product"
	msgUpdateFailed  = "failed to update product quantity"
)

// Message is the shopper-facing text for an outcome, empty when there is
// nothing to tell. Not-found, remote and storage failures share one generic
// message per operation.
func Message(op Op, o Outcome) string {
	switch o {
	case Committed, Ignored:
		return ""
	case StockExceeded:
		return msgStockExceeded
	}

	switch op {
	case OpAdd:
		return msgAddFailed
	case OpRemove:
		return msgRemoveFailed
	default:
		return msgUpdateFailed
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, productID int64) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}
