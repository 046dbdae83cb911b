package cart

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ShopCart/pkg/kit"
)

const (
	maxBody      = 1 << 16
	readyTimeout = 2 * time.Second
)

type Server struct {
	Cart       *Service
	Feed       *Feed
	Storage    Storage
	CatalogURL string
	Log        *zap.Logger
}

type addReq struct {
	ProductID int64 `json:"product_id"`
}

type amountReq struct {
	Amount int `json:"amount"`
}

type outcomeDetails struct {
	Outcome   string `json:"outcome"`
	ProductID int64  `json:"product_id"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Cart.Summary())
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, maxBody, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.ProductID <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "product_id required", nil)
		return
	}

	s.respond(w, r, OpAdd, req.ProductID, s.Cart.AddProduct(r.Context(), req.ProductID))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req amountReq
	if err := kit.DecodeJSON(w, r, maxBody, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	o := s.Cart.UpdateProductAmount(r.Context(), UpdateAmount{ProductID: id, Amount: req.Amount})
	s.respond(w, r, OpUpdate, id, o)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, OpRemove, id, s.Cart.RemoveProduct(r.Context(), id))
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		kit.WriteJSON(w, http.StatusOK, []Notification{})
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Feed.Recent())
}

// checkout is a placeholder; orders are not submitted anywhere.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	kit.WriteError(w, r, http.StatusNotImplemented, "checkout not implemented", nil)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if s.Storage != nil {
		if err := s.Storage.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed: storage", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "storage not ready", nil)
			return
		}
	}

	if s.CatalogURL != "" {
		if err := checkReady(ctx, strings.TrimRight(s.CatalogURL, "/")+"/readyz"); err != nil {
			s.logger().Warn("readyz failed: catalog", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, op Op, productID int64, o Outcome) {
	if o == Committed || o == Ignored {
		kit.WriteJSON(w, http.StatusOK, s.Cart.Summary())
		return
	}
	kit.WriteError(w, r, statusFor(o), Message(op, o), outcomeDetails{
		Outcome:   o.String(),
		ProductID: productID,
	})
}

func statusFor(o Outcome) int {
	switch o {
	case StockExceeded:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case RemoteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
