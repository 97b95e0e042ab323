package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// WatchStatus reports whether the watch cycle is mid-tick
type WatchStatus interface {
	IsRunning() bool
}

// AdminServer serves health, prometheus metrics and roster management over HTTP
type AdminServer struct {
	addr       string
	tracking   interfaces.TrackingService
	registry   *prometheus.Registry
	db         Pinger
	watch      WatchStatus
	httpServer *http.Server
}

// NewAdminServer creates the admin server. db and watch may be nil.
func NewAdminServer(addr string, tracking interfaces.TrackingService, registry *prometheus.Registry, db Pinger, watch WatchStatus) *AdminServer {
	s := &AdminServer{
		addr:     addr,
		tracking: tracking,
		registry: registry,
		db:       db,
		watch:    watch,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Router returns the admin routes
func (s *AdminServer) Router() http.Handler {
	router := mux.NewRouter()

	router.Path("/healthz").Methods(http.MethodGet).HandlerFunc(s.handleHealth)
	router.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	router.Path("/accounts").Methods(http.MethodPost).HandlerFunc(s.handleRegister)
	router.Path("/accounts/{id:[0-9]+}").Methods(http.MethodDelete).HandlerFunc(s.handleUnregister)
	router.Path("/accounts/{id:[0-9]+}/summary").Methods(http.MethodGet).HandlerFunc(s.handleSummary)
	router.Path("/accounts/{id:[0-9]+}/waiters").Methods(http.MethodPost).HandlerFunc(s.handleWait)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL.String(),
		}).Debug("Unmatched admin request")
		w.WriteHeader(http.StatusNotFound)
	})

	return router
}

// Start serves until Shutdown is called
func (s *AdminServer) Start() error {
	log.WithField("addr", s.addr).Info("Starting admin server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *AdminServer) Shutdown(ctx context.Context) error {
	log.Info("Stopping admin server")
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	TickRunning bool   `json:"tick_running"`
}

type registerRequest struct {
	AccountID int64  `json:"account_id"`
	GuildID   int64  `json:"guild_id"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
}

type waitRequest struct {
	WaiterID int64 `json:"waiter_id"`
}

type accountResponse struct {
	AccountID        int64     `json:"account_id"`
	GuildID          int64     `json:"guild_id"`
	RiotID           string    `json:"riot_id"`
	Region           string    `json:"region"`
	LastProcessedEnd time.Time `json:"last_processed_end"`
}

type summaryResponse struct {
	AccountID          int64   `json:"account_id"`
	RiotID             string  `json:"riot_id"`
	RankLabel          string  `json:"rank_label,omitempty"`
	Streak             int     `json:"streak"`
	GamesInWindow      int     `json:"games_in_window"`
	HeadshotRate       float64 `json:"headshot_rate"`
	AverageCombatScore float64 `json:"average_combat_score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "unchecked"}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			log.WithError(err).Warn("Health check database ping failed")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	if s.watch != nil {
		resp.TickRunning = s.watch.IsRunning()
	}

	writeJSON(w, status, resp)
}

func (s *AdminServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.AccountID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account_id is required"})
		return
	}

	account, err := s.tracking.Register(r.Context(), req.AccountID, req.GuildID, req.Name, req.Tag)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{
		AccountID:        account.AccountID,
		GuildID:          account.GuildID,
		RiotID:           account.ExternalRef.GetFullName(),
		Region:           account.ExternalRef.Region,
		LastProcessedEnd: account.LastProcessedEnd,
	})
}

func (s *AdminServer) handleUnregister(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	if err := s.tracking.Unregister(r.Context(), accountID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	summary, err := s.tracking.Summary(r.Context(), accountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		AccountID:          summary.AccountID,
		RiotID:             summary.RiotID,
		RankLabel:          summary.RankLabel,
		Streak:             summary.Streak,
		GamesInWindow:      summary.GamesInWindow,
		HeadshotRate:       summary.HeadshotRate,
		AverageCombatScore: summary.AverageCombatScore,
	})
}

func (s *AdminServer) handleWait(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	var req waitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WaiterID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "waiter_id is required"})
		return
	}

	if err := s.tracking.RequestWait(r.Context(), accountID, req.WaiterID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors to status codes
func (s *AdminServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, entities.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrAccountAlreadyTracked):
		status = http.StatusConflict
	case entities.IsSourceUnavailable(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Admin request failed")
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func accountIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid account id"})
		return 0, false
	}
	return accountID, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write admin response")
	}
}
