package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"glow/internal/core"
	"glow/internal/ledger"
	"glow/internal/log"
)

const maxIdempotencyKeyLength = 128

// transactionView is the wire form of a ledger record.
type transactionView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Damaged     bool   `json:"damaged,omitempty"`
}

func viewOf(tx core.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		Title:       tx.Title,
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		Kind:        string(tx.Kind),
		Date:        tx.Date.String(),
		Category:    tx.Category,
		Damaged:     tx.Damaged(),
	}
}

type createResponse struct {
	Transaction transactionView `json:"transaction"`
	Durable     bool            `json:"durable"`
	Warning     string          `json:"warning,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Request body must be a JSON object or form encoded").Write(w)
		return
	}
	c := p.Candidate()

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" {
		s.createTransaction(r.Context(), c).Write(w)
		return
	}
	if len(key) > maxIdempotencyKeyLength {
		BadRequestError("Idempotency-Key is too long").Write(w)
		return
	}

	// held across the add so a retried request cannot race its original
	s.idemMu.Lock()
	defer s.idemMu.Unlock()

	fp := fingerprint(c)
	if prev, ok := s.idempotency.Get(key); ok {
		if prev.fingerprint != fp {
			ConflictError("Idempotency-Key was already used with a different request").Write(w)
			return
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Replaying idempotent response", "idempotency_key", key)
		w.Header().Set("Idempotent-Replayed", "true")
		prev.response.Send(w)
		return
	}

	rendered, err := s.createTransaction(r.Context(), c).Render()
	if err != nil {
		InternalServerError().Write(w)
		return
	}
	if rendered.status < http.StatusInternalServerError {
		s.idempotency.Set(key, &idempotentEntry{fingerprint: fp, response: rendered})
	}
	rendered.Send(w)
}

func (s *Server) createTransaction(ctx context.Context, c core.Candidate) *JSONResponseBuilder {
	logger := log.FromContext(ctx)

	tx, err := s.store.Add(ctx, c)
	switch {
	case err == nil:
		return NewJSONResponse().
			Status(http.StatusCreated).
			Header("Location", "/api/transactions/"+tx.ID).
			JSON(createResponse{Transaction: viewOf(tx), Durable: true})

	case ledger.IsDurabilityWarning(err):
		const msg = "Transaction recorded but could not be saved to disk; it will be lost on restart unless a later save succeeds"
		logger.WarnContext(ctx, "Transaction accepted without durable snapshot", log.FieldTxID, tx.ID, log.FieldError, err)
		return NewJSONResponse().
			Status(http.StatusCreated).
			Header("Location", "/api/transactions/"+tx.ID).
			Warning("transaction not persisted").
			JSON(createResponse{Transaction: viewOf(tx), Durable: false, Warning: msg})

	case errors.Is(err, core.ErrInvalidInput):
		return UnprocessableEntityError(err.Error())

	case errors.Is(err, ledger.ErrNotLoaded):
		logger.ErrorContext(ctx, "Transaction refused, ledger snapshot unavailable", log.FieldError, err)
		return ServiceUnavailableError("Ledger storage is unavailable, try again later")

	default:
		logger.ErrorContext(ctx, "Transaction add failed", log.FieldError, err)
		return InternalServerError()
	}
}

type listResponse struct {
	Transactions []transactionView `json:"transactions"`
	Count        int               `json:"count"`
}

// handleListTransactions returns the whole ledger, oldest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	all := s.store.All()
	views := make([]transactionView, len(all))
	for i, tx := range all {
		views[i] = viewOf(tx)
	}
	NewJSONResponse().JSON(listResponse{Transactions: views, Count: len(views)}).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), "limit", 0, maxListLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows := s.presenter.RecentRows(limit)
	NewJSONResponse().JSON(map[string]any{"rows": rows, "count": len(rows)}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.Get(chi.URLParam(r, "id"))
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	if err != nil {
		InternalServerError().Write(w)
		return
	}
	NewJSONResponse().JSON(viewOf(tx)).Write(w)
}
