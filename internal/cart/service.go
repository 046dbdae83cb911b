package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Deps struct {
	Catalog   Catalog
	Persister *Persister
	Notifier  Notifier
	Metrics   *Metrics
	Log       *zap.Logger
}

// Service owns the in-memory cart. Each operation stages its change on a
// working copy, validates it against live stock, and only then persists and
// swaps it in. Operations never return errors: anything that goes wrong
// becomes a notification plus an unchanged cart.
//
// Operations are serialized; a remote lookup holds the lock until it
// returns or the context ends.
type Service struct {
	mu    sync.Mutex
	items []Item

	catalog   Catalog
	persister *Persister
	notifier  Notifier
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

// Open loads the stored cart and returns a ready Service. Corrupt stored
// content is logged and replaced by an empty cart; a storage read error is
// returned.
func Open(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Catalog == nil || deps.Persister == nil {
		return nil, errors.New("cart: catalog and persister are required")
	}

	s := &Service{
		catalog:   deps.Catalog,
		persister: deps.Persister,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		log:       deps.Log,
		now:       time.Now,
	}
	if s.notifier == nil {
		s.notifier = Notifiers(nil)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	items, err := deps.Persister.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptCart):
		s.log.Warn("stored cart is corrupt, starting empty", zap.Error(err))
		items = []Item{}
	case err != nil:
		return nil, fmt.Errorf("load cart: %w", err)
	}

	s.items = items
	s.metrics.setCart(items)
	s.log.Info("cart loaded", zap.Int("lines", len(items)))
	return s, nil
}

// Items returns a copy of the cart in insertion order.
func (s *Service) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Service) AddProduct(ctx context.Context, productID int64) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := cloneItems(s.items)
	idx := indexOf(working, productID)

	stock, err := s.catalog.GetStock(ctx, productID)
	if err != nil {
		return s.reject(ctx, OpAdd, RemoteFailure, productID, err)
	}

	current := 0
	if idx >= 0 {
		current = working[idx].Amount
	}
	next := current + 1
	if next > stock.Amount {
		return s.reject(ctx, OpAdd, StockExceeded, productID, nil)
	}

	if idx >= 0 {
		working[idx].Amount = next
	} else {
		p, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return s.reject(ctx, OpAdd, RemoteFailure, productID, err)
		}
		p.ID = productID
		if p.Price.IsNegative() {
			return s.reject(ctx, OpAdd, RemoteFailure, productID, fmt.Errorf("%w: negative price %s", ErrCatalogBadProduct, p.Price))
		}
		working = append(working, Item{Product: p, Amount: 1})
	}

	return s.commit(ctx, OpAdd, productID, working)
}

func (s *Service) RemoveProduct(ctx context.Context, productID int64) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := cloneItems(s.items)
	idx := indexOf(working, productID)
	if idx < 0 {
		return s.reject(ctx, OpRemove, NotFound, productID, nil)
	}

	working = append(working[:idx], working[idx+1:]...)
	return s.commit(ctx, OpRemove, productID, working)
}

// UpdateProductAmount sets an item's quantity. Amounts of zero or less are
// ignored without contacting the catalog; 1 is a valid amount.
func (s *Service) UpdateProductAmount(ctx context.Context, req UpdateAmount) Outcome {
	if req.Amount <= 0 {
		s.metrics.observe(OpUpdate, Ignored)
		return Ignored
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.catalog.GetStock(ctx, req.ProductID)
	if err != nil {
		return s.reject(ctx, OpUpdate, RemoteFailure, req.ProductID, err)
	}
	if req.Amount > stock.Amount {
		return s.reject(ctx, OpUpdate, StockExceeded, req.ProductID, nil)
	}

	working := cloneItems(s.items)
	idx := indexOf(working, req.ProductID)
	if idx < 0 {
		return s.reject(ctx, OpUpdate, NotFound, req.ProductID, nil)
	}

	working[idx].Amount = req.Amount
	return s.commit(ctx, OpUpdate, req.ProductID, working)
}

// commit persists working and swaps it in. Must hold s.mu.
func (s *Service) commit(ctx context.Context, op Op, productID int64, working []Item) Outcome {
	if err := s.persister.Save(ctx, working); err != nil {
		return s.reject(ctx, op, StorageFailure, productID, err)
	}

	s.items = working
	s.metrics.observe(op, Committed)
	s.metrics.setCart(working)
	return Committed
}

func (s *Service) reject(ctx context.Context, op Op, o Outcome, productID int64, cause error) Outcome {
	s.metrics.observe(op, o)

	if cause != nil {
		s.log.Warn("cart operation failed",
			zap.String("op", string(op)),
			zap.String("outcome", o.String()),
			zap.Int64("product_id", productID),
			zap.Error(cause),
		)
	}

	s.notifier.Notify(ctx, Notification{
		ID:        uuid.NewString(),
		Severity:  SeverityError,
		Message:   Message(op, o),
		Op:        op,
		ProductID: productID,
		At:        s.now().UTC(),
	})
	return o
}
