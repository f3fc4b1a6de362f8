package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pawkeep/internal/ics"
	"github.com/dukerupert/pawkeep/internal/middleware"
	"github.com/dukerupert/pawkeep/internal/push"
	"github.com/dukerupert/pawkeep/internal/store"
	ws "github.com/dukerupert/pawkeep/internal/websocket"
)

// Calendar apps poll the feed on a timer; this bounds feed-token guessing
// without throttling a legitimate reader.
const feedRequestsPerMinute = 60

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	families    *store.FamilyStore
	pets        *store.PetStore
	events      *store.EventStore
	pushStore   *store.PushStore
	pushSvc     *push.Service
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New assembles the HTTP server. pushSvc may be nil, in which case the push
// subscription routes are not registered.
func New(db *sql.DB, hub *ws.Hub, pushSvc *push.Service, logger *slog.Logger) *Server {
	return &Server{
		db:          db,
		hub:         hub,
		families:    store.NewFamilyStore(db),
		pets:        store.NewPetStore(db),
		events:      store.NewEventStore(db),
		pushStore:   store.NewPushStore(db),
		pushSvc:     pushSvc,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router assembles the daemon's routes. The websocket endpoint sits outside
// the request logger; per-request logging is useless for a connection that
// lives for hours.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.Handle("GET /calendar.ics", s.rateLimited(ics.Handler(s.families, s.pets, s.events, s.logger)))
	s.registerPushRoutes(mux)

	root := http.NewServeMux()
	root.Handle("/", middleware.RequestLogger(s.logger.With("component", "http"))(mux))
	root.HandleFunc("GET /ws", s.hub.Handler())
	return root
}

func (s *Server) registerPushRoutes(mux *http.ServeMux) {
	if s.pushSvc == nil {
		return
	}
	mux.HandleFunc("GET /api/push/vapid-key", s.vapidKey)
	mux.HandleFunc("POST /api/push/subscribe", s.subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.listSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.unsubscribe)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, feedRequestsPerMinute, time.Minute)(h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
