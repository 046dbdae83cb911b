package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type MemStore struct {
	mu       sync.RWMutex
	products map[int64]Product
	stock    map[int64]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		products: map[int64]Product{},
		stock:    map[int64]int{},
	}
}

// NewSeededStore returns a MemStore with the demo sneaker catalogue.
func NewSeededStore() *MemStore {
	s := NewMemStore()
	s.Put(Product{ID: 1, Title: "Lightweight Walking Sneaker", Price: decimal.RequireFromString("179.90"), Image: "https://images.example.com/sneakers/1.jpg"}, 3)
	s.Put(Product{ID: 2, Title: "Leather Trim Walking Sneaker", Price: decimal.RequireFromString("139.90"), Image: "https://images.example.com/sneakers/2.jpg"}, 5)
	s.Put(Product{ID: 3, Title: "Duramo Lite 2.0 Running Shoe", Price: decimal.RequireFromString("219.90"), Image: "https://images.example.com/sneakers/3.jpg"}, 2)
	s.Put(Product{ID: 4, Title: "Lightweight Walking Sneaker (Grey)", Price: decimal.RequireFromString("179.90"), Image: "https://images.example.com/sneakers/4.jpg"}, 1)
	s.Put(Product{ID: 5, Title: "Leather Trim Walking Sneaker (Black)", Price: decimal.RequireFromString("139.90"), Image: "https://images.example.com/sneakers/5.jpg"}, 5)
	s.Put(Product{ID: 6, Title: "Duramo Lite 2.0 Running Shoe (Blue)", Price: decimal.RequireFromString("219.90"), Image: "https://images.example.com/sneakers/6.jpg"}, 10)
	return s
}

// Put inserts or replaces a product together with its stock level.
func (s *MemStore) Put(p Product, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.stock[p.ID] = stock
}

func (s *MemStore) SetStock(id int64, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[id] = amount
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) GetStock(ctx context.Context, id int64) (Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amount, ok := s.stock[id]
	if !ok {
		return Stock{}, ErrNotFound
	}
	return Stock{ID: id, Amount: amount}, nil
}
