// Package server hosts pairs sessions over HTTP. Each session runs on its own
// clock loop; clients drive it with JSON requests and follow it over a
// websocket event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-pairs/internal/game"
	"go-pairs/internal/levels"
	"go-pairs/internal/progress"
	"go-pairs/internal/round"
	"go-pairs/internal/scoring"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Config wires the server to the level catalogue, stores and round settings
// shared by every session it hosts.
type Config struct {
	Levels  []levels.Level
	Unlocks progress.UnlockStore
	Results scoring.ResultStorage
	Round   round.Options
	// Tick is how often each session clock is advanced.
	Tick time.Duration
	// IdleTimeout closes sessions nobody has touched for this long. Zero
	// means DefaultIdleTimeout.
	IdleTimeout time.Duration
}

const DefaultIdleTimeout = 30 * time.Minute

// Server bundles the router and the live session table.
type Server struct {
	r   *chi.Mux
	cfg Config
	log zerolog.Logger

	// ctx bounds every session loop.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tables map[string]*table
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		r:      chi.NewRouter(),
		cfg:    cfg,
		log:    log.With().Str("component", "server").Logger(),
		ctx:    ctx,
		cancel: cancel,
		tables: make(map[string]*table),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Group(func(r chi.Router) {
		r.Use(hlog.NewHandler(s.log))
		r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
			hlog.FromRequest(r).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", d).
				Msg("request")
		}))
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{n}/scores", s.handleScores)

		r.Post("/sessions", s.handleCreate)
		r.Get("/sessions/{id}", s.handleGet)
		r.Delete("/sessions/{id}", s.handleDelete)
		r.Post("/sessions/{id}/reveal", s.handleReveal)
		r.Post("/sessions/{id}/interaction", s.handleInteraction)
		r.Post("/sessions/{id}/pause", s.handlePause)
		r.Post("/sessions/{id}/resume", s.handleResume)
		r.Post("/sessions/{id}/replay", s.handleReplay)
		r.Post("/sessions/{id}/next", s.handleNext)
	})

	// The event stream outlives any request timeout.
	s.r.Get("/sessions/{id}/events", s.handleEvents)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	go s.reapLoop()
	return s
}

// reapLoop closes idle sessions until the server is closed.
func (s *Server) reapLoop() {
	interval := s.cfg.IdleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.reap(now)
		}
	}
}

// reap stops and forgets every table idle at now and returns how many went.
func (s *Server) reap(now time.Time) int {
	var expired []*table
	s.mu.Lock()
	for id, t := range s.tables {
		if t.idle(now, s.cfg.IdleTimeout) {
			expired = append(expired, t)
			delete(s.tables, id)
		}
	}
	s.mu.Unlock()

	for _, t := range expired {
		t.cancel()
		s.log.Info().Str("session", t.id).Msg("idle session closed")
	}
	return len(expired)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Close stops every hosted session.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	s.tables = make(map[string]*table)
	s.mu.Unlock()
}

// Run serves on addr until ctx is canceled, then shuts down gracefully. If
// started is non-nil it receives the bound address once listening.
func (s *Server) Run(ctx context.Context, addr string, started chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server started")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if started != nil {
		started <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down server")
	s.Close()
	return srv.Shutdown(shutdownCtx)
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// ------------------------------ levels -------------------------------------

type levelRes struct {
	Number   int             `json:"number"`
	Name     string          `json:"name"`
	Pairs    int             `json:"pairs"`
	Unlocked bool            `json:"unlocked"`
	Best     *scoring.Result `json:"best,omitempty"`
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	statuses, err := game.LevelStatuses(s.cfg.Levels, s.cfg.Unlocks, s.cfg.Results)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("level statuses")
		writeError(w, http.StatusInternalServerError, "store_failed")
		return
	}
	out := make([]levelRes, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, levelRes{
			Number:   st.Level.Number,
			Name:     st.Level.Name,
			Pairs:    st.Level.PairCount,
			Unlocked: st.Unlocked,
			Best:     st.Best,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_level")
		return
	}
	if _, ok := levels.Find(s.cfg.Levels, n); !ok {
		writeError(w, http.StatusNotFound, "unknown_level")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
	}
	h, err := scoring.LoadHistory(n, s.cfg.Results)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load history")
		writeError(w, http.StatusInternalServerError, "store_failed")
		return
	}
	writeJSON(w, http.StatusOK, h.TopN(limit))
}

// ------------------------------ sessions -----------------------------------

type createReq struct {
	Level int `json:"level"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	t := newTable(uuid.NewString(), s.cfg.Tick)
	ctx, cancel := context.WithCancel(s.ctx)
	t.cancel = cancel
	go func() { _ = t.loop.Run(ctx) }()

	var (
		res    view
		actErr error
	)
	err := t.loop.Call(r.Context(), func() {
		sess, err := game.NewSession(game.SessionConfig{
			Levels:    s.cfg.Levels,
			Unlocks:   s.cfg.Unlocks,
			Results:   s.cfg.Results,
			Scheduler: t.loop.Scheduler(),
			Round:     s.cfg.Round,
			Events:    t.events(),
		})
		if err != nil {
			actErr = err
			return
		}
		t.session = sess
		if actErr = sess.StartLevel(req.Level); actErr == nil {
			res = t.view()
		}
	})
	if err == nil {
		err = actErr
	}
	if err != nil {
		cancel()
		s.writeSessionError(w, r, err)
		return
	}

	s.mu.Lock()
	s.tables[t.id] = t
	s.mu.Unlock()
	hlog.FromRequest(r).Info().Str("session", t.id).Int("level", req.Level).Msg("session created")
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*table, bool) {
	s.mu.Lock()
	t, ok := s.tables[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_session")
		return nil, false
	}
	t.touch(time.Now())
	return t, true
}

// act runs fn on the session loop and replies with the resulting view.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(t *table) error) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var (
		res    view
		actErr error
	)
	err := t.loop.Call(r.Context(), func() {
		if fn != nil {
			actErr = fn(t)
		}
		res = t.view()
	})
	if err == nil {
		err = actErr
	}
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownLevel):
		writeError(w, http.StatusNotFound, "unknown_level")
	case errors.Is(err, game.ErrLevelLocked):
		writeError(w, http.StatusForbidden, "level_locked")
	case errors.Is(err, game.ErrNoRound):
		writeError(w, http.StatusConflict, "no_round")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("session action")
		writeError(w, http.StatusInternalServerError, "session_failed")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, nil)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	t, ok := s.tables[id]
	delete(s.tables, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_session")
		return
	}
	t.cancel()
	hlog.FromRequest(r).Info().Str("session", id).Msg("session closed")
	w.WriteHeader(http.StatusNoContent)
}

type revealReq struct {
	Card *int `json:"card"`
}

// handleReveal forwards a reveal request. Requests the round refuses are not
// errors; the returned view shows whether the card turned.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req revealReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Card == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.act(w, r, func(t *table) error {
		t.session.Round.RequestReveal(*req.Card)
		return nil
	})
}

type interactionReq struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.act(w, r, func(t *table) error {
		t.session.Round.SetInteractionEnabled(*req.Enabled)
		return nil
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(t *table) error {
		t.loop.Clock().Pause()
		return nil
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(t *table) error {
		t.loop.Clock().Resume()
		return nil
	})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(t *table) error {
		return t.session.Replay()
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(t *table) error {
		return t.session.NextLevel()
	})
}
