// Package api serves the management HTTP surface: monitored item CRUD, url
// records, price history, edit sessions and the live update socket.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sjsage522/pricewatcher/internal/history"
	"sjsage522/pricewatcher/internal/metrics"
	"sjsage522/pricewatcher/internal/session"
	"sjsage522/pricewatcher/internal/store"
	"sjsage522/pricewatcher/logger"
)

// Server holds the collaborators shared by the HTTP handlers.
type Server struct {
	store    store.Store
	tracker  *history.Tracker
	sessions *session.Store
	ws       http.HandlerFunc
	logger   *logger.Logger
}

// NewServer creates a Server. ws may be nil, in which case /ws is not served.
func NewServer(st store.Store, tracker *history.Tracker, sessions *session.Store, ws http.HandlerFunc) *Server {
	return &Server{
		store:    st,
		tracker:  tracker,
		sessions: sessions,
		ws:       ws,
		logger:   logger.ForAPI(),
	}
}

// Router builds the chi router with middleware and every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"pricewatcher"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	if s.ws != nil {
		r.Get("/ws", s.ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/monitored-items", func(r chi.Router) {
			r.Get("/", s.ListItems)
			r.Post("/", s.CreateItem)
			r.Get("/users-to-notify/{urlID}", s.UsersToNotify)
			r.Get("/{itemID}", s.GetItem)
			r.Put("/{itemID}", s.UpdateItem)
			r.Delete("/{itemID}", s.DeleteItem)
		})

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", s.ListURLs)
			r.Post("/", s.CreateURL)
			r.Get("/by-string", s.GetURLByString)
			r.Put("/{urlID}/image-url", s.SetImageURL)
			r.Put("/{urlID}/acknowledge-price-change", s.AcknowledgePriceChange)
		})

		r.Route("/price-history", func(r chi.Router) {
			r.Get("/", s.ListPriceHistory)
			r.Post("/", s.RecordPrice)
			r.Get("/latest/{urlID}", s.LatestPrice)
			r.Get("/export", s.ExportPriceHistory)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.StartSession)
			r.Patch("/{sessionID}", s.UpdateSession)
			r.Post("/{sessionID}/submit", s.SubmitSession)
			r.Delete("/{sessionID}", s.CancelSession)
		})
	})

	return r
}

// cors allows the dashboard to call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Owner-Id, X-Admin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
