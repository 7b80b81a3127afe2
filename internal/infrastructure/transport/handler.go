package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"appforge/app/usecase"
	"appforge/internal/domain/entity"
	"appforge/internal/infrastructure/metrics"
)

const (
	acceptedMessage = "Task accepted. Generation of your AI-powered app is running in the background. You will receive an email upon completion."
	wsWriteTimeout  = 10 * time.Second
)

type AppForgeHandler struct {
	sessionService usecase.SessionUsecase
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	limiter        *rate.Limiter
}

// NewAppForgeHandler builds the HTTP handler. A ratePerSecond of zero
// disables the intake limiter.
func NewAppForgeHandler(
	sessionService usecase.SessionUsecase,
	ratePerSecond float64,
	burst int,
	logger *slog.Logger,
) *AppForgeHandler {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}

	return &AppForgeHandler{
		sessionService: sessionService,
		logger:         logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter: limiter,
	}
}

func (h *AppForgeHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, path, strconv.Itoa(rw.status), time.Since(start), rw.status >= 400)
	}
}

func (h *AppForgeHandler) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests, try again later"))
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *AppForgeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate-code-interactive", h.withMetrics(h.withRateLimit(h.handleGenerate))).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", h.withMetrics(h.handleListSessions)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.withMetrics(h.handleGetSession)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/events", h.withMetrics(h.handleSessionEvents)).Methods(http.MethodGet)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type generateResp struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// POST /generate-code-interactive
func (h *AppForgeHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req entity.CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}

	session, err := h.sessionService.Submit(r.Context(), req)
	if errors.Is(err, entity.ErrRecipientRequired) {
		// reported in the body, not the status code
		writeError(w, http.StatusOK, err)
		return
	}
	if err != nil {
		h.logger.Error("submit session failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.logger.Info("session accepted", "session_id", session.ID, "recipient", session.Recipient)
	writeJSON(w, http.StatusOK, generateResp{Response: acceptedMessage, SessionID: session.ID})
}

// GET /api/v1/sessions
func (h *AppForgeHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("list sessions failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []*entity.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GET /api/v1/sessions/{id}
func (h *AppForgeHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, err := h.sessionService.GetSession(r.Context(), id)
	if errors.Is(err, entity.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.logger.Error("get session failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /api/v1/sessions/{id}/events
func (h *AppForgeHandler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// subscribe before reading the snapshot so no transition is missed
	updates, err := h.sessionService.WatchSession(ctx, id)
	if errors.Is(err, entity.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	current, err := h.sessionService.GetSession(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "id", id, "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// reader loop only detects the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(s entity.Session) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(s); err != nil {
			h.logger.Debug("websocket write failed", "id", id, "err", err)
			return false
		}
		return true
	}

	last := current.Status
	if !send(*current) {
		return
	}
	for snapshot := range updates {
		if !send(snapshot) {
			return
		}
		last = snapshot.Status
	}

	// a slow reader may have missed the terminal update
	if ctx.Err() == nil && !last.IsTerminal() {
		if final, err := h.sessionService.GetSession(ctx, id); err == nil && final.Status != last {
			send(*final)
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteTimeout))
}

// GET /api/v1/health
func (h *AppForgeHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
