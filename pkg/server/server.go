// Package server exposes the Skymesh flows over a JSON API. Every browser
// session gets its own wizard drivers; the quiz snapshot is stored under a
// session-scoped key.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/store"
)

type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
	// AutoAdvanceDelay overrides each flow's own delay when positive.
	AutoAdvanceDelay time.Duration
	TransitionSpeed  float64
	Now              func() time.Time
}

type Server struct {
	store    store.Store
	opts     Options
	sessions *sessions
	keys     keyring
	router   chi.Router
}

func New(st store.Store, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{store: st, opts: opts}
	s.sessions = newSessions(opts.SecureCookies, s.forgetKey)
	if err := s.keys.init(); err != nil {
		return nil, eris.Wrap(err, "server: init keyring")
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) forgetKey(key string) {
	if err := s.store.Delete(context.Background(), key); err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("drop expired session state", zap.String("key", key), zap.Error(err))
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/health", handleHealth)
	r.Get("/api/crypto/public-key", s.handlePublicKey)

	r.Route("/api/flows/{flow}", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Get("/", s.withDriver(s.handleState))
		r.Post("/advance", s.withDriver(s.handleAdvance))
		r.Post("/retreat", s.withDriver(s.handleRetreat))
		r.Post("/goto", s.withDriver(s.handleGoTo))
		r.Post("/field", s.withDriver(s.handleField))
		r.Post("/toggle", s.withDriver(s.handleToggle))
		r.Post("/edit", s.withDriver(s.handleEdit))
		r.Post("/draft", s.withDriver(s.handleDraftOpen))
		r.Post("/draft/field", s.withDriver(s.handleDraftField))
		r.Post("/draft/commit", s.withDriver(s.handleDraftCommit))
		r.Post("/draft/cancel", s.withDriver(s.handleDraftCancel))
	})

	r.Post("/api/quiz/finish", s.handleQuizFinish)
	r.Get("/api/analyzing", s.handleAnalyzing)
	r.Get("/api/recommendation", s.handleRecommendation)
	r.Get("/api/plans", s.handlePlans)
	r.Post("/api/checkout/confirm", s.handleConfirm)
	r.Get("/api/orders/{number}", s.handleOrder)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port), zap.Strings("flows", flows.Names()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.sessions.closeAll()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	keyID, spki, err := s.keys.publicKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"keyId":     keyID,
		"algorithm": "RSA-OAEP-256",
		"spki":      spki,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
