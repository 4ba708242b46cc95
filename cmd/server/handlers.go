package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/quoting"
	"github.com/fencecpq/quoteengine/internal/store"
)

var errBadRequest = errors.New("bad request")

type createQuoteRequest struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	QuoteType     domain.QuoteType `json:"quote_type"`
	QuoteConfigID int64            `json:"quote_config_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type uiStateRequest struct {
	UIState string `json:"ui_state"`
}

type addEntryRequest struct {
	ProductID int64              `json:"product_id"`
	Quantity  decimal.Decimal    `json:"quantity"`
	Role      domain.ProductRole `json:"role"`
	Notes     string             `json:"notes"`
}

func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quotes.CreateQuote(r.Context(), quoting.NewQuote{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.QuoteType,
		ConfigID:    req.QuoteConfigID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quotes.GetQuote(r.Context(), quoteID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleSetQuoteStatus(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quotes.SetQuoteStatus(r.Context(), quoteID, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	quoteType := domain.QuoteType(r.URL.Query().Get("quote_type"))
	if quoteType == "" {
		quoteType = domain.QuoteGeneral
	}

	previews, err := s.quotes.ListQuotes(r.Context(), quoteType, page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

func (s *server) handleSetQuoteUIState(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req uiStateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quotes.SetQuoteUIState(r.Context(), quoteID, req.UIState)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	categories, err := s.quotes.ListCategories(r.Context(), r.URL.Query().Get("type"), page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *server) handleListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "categoryName"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid category name", errBadRequest))
		return
	}

	products, err := s.quotes.ListCategoryProducts(r.Context(), name, page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req addEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.quotes.AddProductEntry(r.Context(), quoteID, quoting.NewEntry{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Role:      req.Role,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	role := domain.ProductRole(r.URL.Query().Get("role"))
	entries, err := s.quotes.ListProductEntries(r.Context(), quoteID, role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	entryID, err := parseID(r, "entryID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.quotes.DeleteProductEntry(r.Context(), quoteID, entryID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseID(r, "entryID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.quotes.GetProductEntry(r.Context(), entryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleSetVariation(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseID(r, "entryID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	optionID, err := parseID(r, "optionID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.quotes.SetVariationOption(r.Context(), entryID, optionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	cq, err := s.quotes.Calculate(r.Context(), quoteID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cq)
}

func (s *server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	quoteID, err := parseID(r, "quoteID")
	if err != nil {
		s.writeError(w, err)
		return
	}

	cq, err := s.quotes.GetCalculatedQuote(r.Context(), quoteID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cq)
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, param)
	}
	return id, nil
}

func parsePage(r *http.Request) (store.Page, error) {
	var page store.Page
	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{name: "offset", dst: &page.Offset},
		{name: "limit", dst: &page.Limit},
	} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return store.Page{}, fmt.Errorf("%w: invalid %s", errBadRequest, f.name)
		}
		*f.dst = n
	}
	return page, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, errBadRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusUnprocessableEntity, err.Error()
	default:
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": message})
}
