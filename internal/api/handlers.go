package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"stock_go/internal/domain"
	"stock_go/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// ======================================================================================
// Auth
// ======================================================================================

type tokenRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	owner := strings.TrimSpace(req.Username)
	if owner == "" {
		writeError(w, http.StatusUnprocessableEntity, "username must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"owner": owner,
		"token": s.tokens.Issue(owner),
	})
}

// ======================================================================================
// Rules
// ======================================================================================

type createRuleRequest struct {
	Symbol   string          `json:"symbol"`
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
	Quantity int64           `json:"quantity"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	rule, err := s.registry.Create(ownerFrom(r), req.Symbol, req.MinPrice, req.MaxPrice, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.registry.List(ownerFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// handleUpdateRule replaces all user-editable fields. Unlike create,
// an omitted quantity is a validation error, never a silent default.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule, err := s.registry.Update(ownerFrom(r), r.PathValue("id"),
		req.Symbol, req.MinPrice, req.MaxPrice, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(ownerFrom(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted successfully"})
}

type toggleRuleRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	var req toggleRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	rule, err := s.registry.SetActive(ownerFrom(r), r.PathValue("id"), req.Active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// ======================================================================================
// Holdings (cart)
// ======================================================================================

type cartResponse struct {
	Items []domain.Holding `json:"items"`
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	items, err := s.holdings.List(ownerFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: items})
}

func (s *Server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	var item domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.holdings.Add(ownerFrom(r), item); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := s.holdings.Checkout(ownerFrom(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "bought"})
}

func (s *Server) handleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	if err := s.holdings.Remove(ownerFrom(r), r.PathValue("symbol")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ======================================================================================
// Stocks
// ======================================================================================

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.FetchSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "price feed unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap.Sorted())
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.FetchSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "price feed unavailable")
		return
	}
	quote, ok := snap.Lookup(strings.ToUpper(r.PathValue("symbol")))
	if !ok {
		writeDomainError(w, domain.ErrInstrumentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ======================================================================================
// Metrics & push channel
// ======================================================================================

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is handled by the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	owner, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	slog.Info("Push channel connected", slog.String("owner", owner))
	s.hub.Serve(owner, conn)
	slog.Info("Push channel closed", slog.String("owner", owner))
}
