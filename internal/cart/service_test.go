package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	mu         sync.Mutex
	products   map[int64]Product
	stock      map[int64]int
	stockErr   error
	productErr error
	stockCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[int64]Product{}, stock: map[int64]int{}}
}

func (f *fakeCatalog) put(id int64, price string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = Product{ID: id, Title: "product", Price: decimal.RequireFromString(price), Image: "https://img/p.jpg"}
	f.stock[id] = stock
}

func (f *fakeCatalog) setStock(id int64, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[id] = n
}

func (f *fakeCatalog) GetStock(_ context.Context, id int64) (Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockCalls++
	if f.stockErr != nil {
		return Stock{}, f.stockErr
	}
	n, ok := f.stock[id]
	if !ok {
		return Stock{}, ErrCatalogNotFound
	}
	return Stock{ID: id, Amount: n}, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return Product{}, f.productErr
	}
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrCatalogNotFound
	}
	return p, nil
}

type brokenStorage struct {
	Storage
	getErr error
	setErr error
}

func (b brokenStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	return b.Storage.Get(ctx, key)
}

func (b brokenStorage) Set(ctx context.Context, key string, val []byte) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.Storage.Set(ctx, key, val)
}

type harness struct {
	svc     *Service
	catalog *fakeCatalog
	storage *MemStorage
	feed    *Feed
	metrics *Metrics
}

func newHarness(t *testing.T, seed []Item) *harness {
	t.Helper()

	h := &harness{
		catalog: newFakeCatalog(),
		storage: NewMemStorage(),
		feed:    NewFeed(10),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	if seed != nil {
		require.NoError(t, NewPersister(h.storage, "").Save(context.Background(), seed))
	}

	svc, err := Open(context.Background(), Deps{
		Catalog:   h.catalog,
		Persister: NewPersister(h.storage, ""),
		Notifier:  h.feed,
		Metrics:   h.metrics,
		Log:       zap.NewNop(),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) stored(t *testing.T) []Item {
	t.Helper()
	items, err := NewPersister(h.storage, "").Load(context.Background())
	require.NoError(t, err)
	return items
}

type idAmount struct {
	ID     int64
	Amount int
}

func amounts(items []Item) []idAmount {
	out := make([]idAmount, 0, len(items))
	for _, it := range items {
		out = append(out, idAmount{it.ID, it.Amount})
	}
	return out
}

func item(id int64, amount int) Item {
	return Item{Product: Product{ID: id, Title: "product", Price: decimal.RequireFromString("10.00")}, Amount: amount}
}

func TestAddProduct_TwiceAggregates(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.put(1, "179.90", 5)
	ctx := context.Background()

	require.Equal(t, Committed, h.svc.AddProduct(ctx, 1))
	require.Equal(t, Committed, h.svc.AddProduct(ctx, 1))

	require.Equal(t, []idAmount{{1, 2}}, amounts(h.svc.Items()))
	require.Equal(t, []idAmount{{1, 2}}, amounts(h.stored(t)))
	require.Empty(t, h.feed.Recent())

	got := h.svc.Items()[0]
	require.Equal(t, "product", got.Title)
	require.True(t, got.Price.Equal(decimal.RequireFromString("179.9")))
}

func TestAddProduct_StockExceeded(t *testing.T) {
	h := newHarness(t, []Item{item(1, 2)})
	h.catalog.put(1, "10.00", 2)

	require.Equal(t, StockExceeded, h.svc.AddProduct(context.Background(), 1))

	require.Equal(t, []idAmount{{1, 2}}, amounts(h.svc.Items()))
	notes := h.feed.Recent()
	require.Len(t, notes, 1)
	require.Equal(t, msgStockExceeded, notes[0].Message)
	require.Equal(t, SeverityError, notes[0].Severity)
	require.Equal(t, int64(1), notes[0].ProductID)
	require.NotEmpty(t, notes[0].ID)
}

func TestAddProduct_NewItemNeedsStockOfOne(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.put(3, "10.00", 0)

	require.Equal(t, StockExceeded, h.svc.AddProduct(context.Background(), 3))
	require.Empty(t, h.svc.Items())
}

func TestAddProduct_RemoteFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fakeCatalog)
	}{
		{"stock unavailable", func(f *fakeCatalog) { f.stockErr = ErrCatalogUnavailable }},
		{"unknown product", func(f *fakeCatalog) {}},
		{"product lookup fails", func(f *fakeCatalog) {
			f.setStock(9, 3)
			f.productErr = ErrCatalogBadStatus
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, []Item{item(1, 1)})
			tc.setup(h.catalog)

			require.Equal(t, RemoteFailure, h.svc.AddProduct(context.Background(), 9))

			require.Equal(t, []idAmount{{1, 1}}, amounts(h.svc.Items()))
			require.Equal(t, []idAmount{{1, 1}}, amounts(h.stored(t)))
			notes := h.feed.Recent()
			require.Len(t, notes, 1)
			require.Equal(t, msgAddFailed, notes[0].Message)
		})
	}
}

func TestAddProduct_NegativePriceRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.put(1, "10.00", 5)
	h.catalog.put(2, "-1.00", 5)
	ctx := context.Background()

	require.Equal(t, Committed, h.svc.AddProduct(ctx, 1))
	require.Equal(t, Committed, h.svc.AddProduct(ctx, 1))
	require.Equal(t, RemoteFailure, h.svc.AddProduct(ctx, 2))
	require.Equal(t, []idAmount{{1, 2}}, amounts(h.svc.Items()))

	reopened, err := Open(ctx, Deps{Catalog: h.catalog, Persister: NewPersister(h.storage, "")})
	require.NoError(t, err)
	require.Equal(t, []idAmount{{1, 2}}, amounts(reopened.Items()))
}

func TestAddProduct_PreservesOrder(t *testing.T) {
	h := newHarness(t, nil)
	for _, id := range []int64{3, 1, 2} {
		h.catalog.put(id, "1.00", 10)
	}
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2, 1} {
		require.Equal(t, Committed, h.svc.AddProduct(ctx, id))
	}

	require.Equal(t, []idAmount{{3, 1}, {1, 2}, {2, 1}}, amounts(h.svc.Items()))
}

func TestRemoveProduct_LastItem(t *testing.T) {
	h := newHarness(t, []Item{item(1, 1)})

	require.Equal(t, Committed, h.svc.RemoveProduct(context.Background(), 1))

	require.Empty(t, h.svc.Items())
	require.Empty(t, h.stored(t))
}

func TestRemoveProduct_Missing(t *testing.T) {
	h := newHarness(t, []Item{})

	require.Equal(t, NotFound, h.svc.RemoveProduct(context.Background(), 99))

	require.Empty(t, h.svc.Items())
	notes := h.feed.Recent()
	require.Len(t, notes, 1)
	require.Equal(t, msgRemoveFailed, notes[0].Message)
}

func TestRemoveProduct_Idempotent(t *testing.T) {
	h := newHarness(t, []Item{item(1, 2), item(2, 1)})
	ctx := context.Background()

	require.Equal(t, Committed, h.svc.RemoveProduct(ctx, 1))
	once := h.svc.Items()

	require.Equal(t, NotFound, h.svc.RemoveProduct(ctx, 1))
	require.Equal(t, once, h.svc.Items())
	require.Equal(t, []idAmount{{2, 1}}, amounts(h.stored(t)))
	require.Len(t, h.feed.Recent(), 1)
	require.Zero(t, h.catalog.stockCalls)
}

func TestUpdateProductAmount_NonPositiveIgnored(t *testing.T) {
	h := newHarness(t, []Item{item(1, 3)})
	ctx := context.Background()

	for _, amount := range []int{0, -1, -50} {
		require.Equal(t, Ignored, h.svc.UpdateProductAmount(ctx, UpdateAmount{ProductID: 1, Amount: amount}))
	}

	require.Equal(t, []idAmount{{1, 3}}, amounts(h.svc.Items()))
	require.Zero(t, h.catalog.stockCalls)
	require.Empty(t, h.feed.Recent())
	require.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("update", "ignored")))
}

func TestUpdateProductAmount(t *testing.T) {
	cases := []struct {
		name     string
		req      UpdateAmount
		stockErr error
		want     Outcome
		wantCart []idAmount
		wantMsg  string
	}{
		{"within stock", UpdateAmount{ProductID: 1, Amount: 4}, nil, Committed, []idAmount{{1, 4}, {2, 1}}, ""},
		{"down to one", UpdateAmount{ProductID: 1, Amount: 1}, nil, Committed, []idAmount{{1, 1}, {2, 1}}, ""},
		{"equal to stock", UpdateAmount{ProductID: 1, Amount: 5}, nil, Committed, []idAmount{{1, 5}, {2, 1}}, ""},
		{"over stock", UpdateAmount{ProductID: 1, Amount: 6}, nil, StockExceeded, []idAmount{{1, 3}, {2, 1}}, msgStockExceeded},
		{"not in cart", UpdateAmount{ProductID: 7, Amount: 1}, nil, NotFound, []idAmount{{1, 3}, {2, 1}}, msgUpdateFailed},
		{"catalog down", UpdateAmount{ProductID: 1, Amount: 2}, ErrCatalogUnavailable, RemoteFailure, []idAmount{{1, 3}, {2, 1}}, msgUpdateFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, []Item{item(1, 3), item(2, 1)})
			h.catalog.put(1, "10.00", 5)
			h.catalog.put(2, "10.00", 5)
			h.catalog.put(7, "10.00", 5)
			h.catalog.stockErr = tc.stockErr

			require.Equal(t, tc.want, h.svc.UpdateProductAmount(context.Background(), tc.req))
			require.Equal(t, tc.wantCart, amounts(h.svc.Items()))
			require.Equal(t, tc.wantCart, amounts(h.stored(t)))

			notes := h.feed.Recent()
			if tc.wantMsg == "" {
				require.Empty(t, notes)
				return
			}
			require.Len(t, notes, 1)
			require.Equal(t, tc.wantMsg, notes[0].Message)
		})
	}
}

func TestCommit_StorageFailureLeavesCartUnchanged(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.put(1, "10.00", 5)

	mem := NewMemStorage()
	require.NoError(t, NewPersister(mem, "").Save(context.Background(), []Item{item(1, 1)}))

	feed := NewFeed(5)
	svc, err := Open(context.Background(), Deps{
		Catalog:   catalog,
		Persister: NewPersister(brokenStorage{Storage: mem, setErr: errors.New("disk full")}, ""),
		Notifier:  feed,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, StorageFailure, svc.AddProduct(ctx, 1))
	require.Equal(t, StorageFailure, svc.UpdateProductAmount(ctx, UpdateAmount{ProductID: 1, Amount: 3}))
	require.Equal(t, StorageFailure, svc.RemoveProduct(ctx, 1))

	require.Equal(t, []idAmount{{1, 1}}, amounts(svc.Items()))
	notes := feed.Recent()
	require.Len(t, notes, 3)
	require.Equal(t, msgAddFailed, notes[0].Message)
	require.Equal(t, msgUpdateFailed, notes[1].Message)
	require.Equal(t, msgRemoveFailed, notes[2].Message)
}

func TestOpen_CorruptStorageStartsEmpty(t *testing.T) {
	mem := NewMemStorage()
	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, []byte(`[{"id":1,"amount":0}]`)))

	catalog := newFakeCatalog()
	catalog.put(2, "5.00", 1)

	svc, err := Open(context.Background(), Deps{Catalog: catalog, Persister: NewPersister(mem, "")})
	require.NoError(t, err)
	require.Empty(t, svc.Items())

	// the next commit overwrites the bad value
	require.Equal(t, Committed, svc.AddProduct(context.Background(), 2))
	items, err := NewPersister(mem, "").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []idAmount{{2, 1}}, amounts(items))
}

func TestOpen_StorageReadError(t *testing.T) {
	_, err := Open(context.Background(), Deps{
		Catalog:   newFakeCatalog(),
		Persister: NewPersister(brokenStorage{Storage: NewMemStorage(), getErr: errors.New("connection refused")}, ""),
	})
	require.Error(t, err)
}

func TestOpen_RequiresDeps(t *testing.T) {
	_, err := Open(context.Background(), Deps{})
	require.Error(t, err)
}

func TestMetrics_TrackCart(t *testing.T) {
	h := newHarness(t, []Item{item(1, 2)})
	h.catalog.put(1, "10.00", 5)
	h.catalog.put(2, "10.00", 5)
	ctx := context.Background()

	require.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Units))

	require.Equal(t, Committed, h.svc.AddProduct(ctx, 2))
	require.Equal(t, NotFound, h.svc.RemoveProduct(ctx, 42))

	require.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Lines))
	require.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Units))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("add", "committed")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("remove", "not_found")))
}

func TestStockCeilingHolds(t *testing.T) {
	h := newHarness(t, nil)
	ids := []int64{1, 2, 3}
	for _, id := range ids {
		h.catalog.put(id, "1.00", 3)
	}
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		id := ids[rng.Intn(len(ids))]
		stock := rng.Intn(6)
		h.catalog.setStock(id, stock)

		var o Outcome
		switch rng.Intn(3) {
		case 0:
			o = h.svc.AddProduct(ctx, id)
		case 1:
			o = h.svc.UpdateProductAmount(ctx, UpdateAmount{ProductID: id, Amount: rng.Intn(8) - 1})
		default:
			o = h.svc.RemoveProduct(ctx, id)
		}

		for _, it := range h.svc.Items() {
			require.GreaterOrEqual(t, it.Amount, 1)
			if it.ID == id && o == Committed {
				require.LessOrEqual(t, it.Amount, stock, "step %d", i)
			}
		}
	}
}
