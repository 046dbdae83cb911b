package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const DefaultStorageKey = "shopcart:cart"

// ErrCorruptCart marks stored content that cannot be a valid cart.
var ErrCorruptCart = errors.New("corrupt stored cart")

// Persister saves and loads the whole cart as one JSON array under a single
// key. There are no incremental writes.
type Persister struct {
	Storage Storage
	Key     string
}

func NewPersister(s Storage, key string) *Persister {
	if key == "" {
		key = DefaultStorageKey
	}
	return &Persister{Storage: s, Key: key}
}

// Load returns the stored cart, or an empty one when nothing is stored.
func (p *Persister) Load(ctx context.Context) ([]Item, error) {
	raw, ok, err := p.Storage.Get(ctx, p.Key)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return []Item{}, nil
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	if items == nil {
		// a stored JSON null
		return []Item{}, nil
	}
	if err := validate(items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	return items, nil
}

func (p *Persister) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	// Load would reject it on the next start.
	if err := validate(items); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return p.Storage.Set(ctx, p.Key, raw)
}

func validate(items []Item) error {
	seen := make(map[int64]struct{}, len(items))
	for i, it := range items {
		if it.ID <= 0 {
			return fmt.Errorf("item %d: bad id %d", i, it.ID)
		}
		if it.Amount < 1 {
			return fmt.Errorf("item %d: amount %d below 1", i, it.Amount)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("item %d: negative price", i)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("item %d: duplicate id %d", i, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
