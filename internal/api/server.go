package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stock_go/internal/auth"
	"stock_go/internal/domain"
	"stock_go/internal/notify"
	"stock_go/internal/service"
)

type ownerKey struct{}

// Server is the HTTP edge: rule and holdings CRUD, price snapshots,
// metrics, and the websocket push channel.
type Server struct {
	registry *service.Registry
	holdings *service.Holdings
	source   domain.SnapshotSource
	hub      *notify.Hub
	tokens   *auth.Tokens
	iconsDir string

	http *http.Server
}

// NewServer wires all handlers onto a stdlib mux.
func NewServer(addr string, registry *service.Registry, holdings *service.Holdings,
	source domain.SnapshotSource, hub *notify.Hub, tokens *auth.Tokens, iconsDir string) *Server {

	s := &Server{
		registry: registry,
		holdings: holdings,
		source:   source,
		hub:      hub,
		tokens:   tokens,
		iconsDir: iconsDir,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/token", s.handleIssueToken)

	mux.Handle("POST /api/rules", s.authed(s.handleCreateRule))
	mux.Handle("GET /api/rules", s.authed(s.handleListRules))
	mux.Handle("PUT /api/rules/{id}", s.authed(s.handleUpdateRule))
	mux.Handle("DELETE /api/rules/{id}", s.authed(s.handleDeleteRule))
	mux.Handle("PATCH /api/rules/{id}/active", s.authed(s.handleToggleRule))

	mux.Handle("GET /api/cart", s.authed(s.handleListHoldings))
	mux.Handle("POST /api/cart/add", s.authed(s.handleAddHolding))
	mux.Handle("POST /api/cart/buy", s.authed(s.handleCheckout))
	mux.Handle("DELETE /api/cart/remove/{symbol}", s.authed(s.handleRemoveHolding))

	mux.HandleFunc("GET /api/stocks", s.handleListStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleGetStock)

	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws", s.handleWebsocket)

	mux.Handle("GET /icons/", http.StripPrefix("/icons/",
		http.FileServer(http.Dir(iconsDir))))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// authed resolves the bearer token to an owner and stores it in the
// request context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.resolveOwner(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

// resolveOwner accepts the Authorization header or, for websocket
// clients that cannot set headers, a token query parameter.
func (s *Server) resolveOwner(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); h != "" {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return s.tokens.Verify(token)
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, ve.Error())
	case errors.Is(err, domain.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "Rule not found or unauthorized")
	case errors.Is(err, domain.ErrInstrumentNotFound):
		writeError(w, http.StatusNotFound, "Stock not found")
	default:
		slog.Error("Request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
