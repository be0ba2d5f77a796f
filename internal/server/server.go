package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"raizian-mentor-backend/internal/config"
	"raizian-mentor-backend/internal/db"
	"raizian-mentor-backend/internal/events"
	"raizian-mentor-backend/internal/mentor"
	"raizian-mentor-backend/internal/store"
	"raizian-mentor-backend/internal/types"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Options carries the collaborators of a Server. Users, Database and OAuth
// may be nil.
type Options struct {
	Sessions    *mentor.Registry
	Bus         *events.Bus
	Prompts     *mentor.Prompts
	Feed        store.NotificationFeed
	Preferences *store.FilePreferenceStore
	Users       store.UserStore
	Database    *db.DB
	Gatherer    prometheus.Gatherer
	OAuth       *oauth2.Config
}

type Server struct {
	router      *chi.Mux
	cfg         config.Config
	sessions    *mentor.Registry
	bus         *events.Bus
	prompts     *mentor.Prompts
	auth        *store.MemoryStore
	feed        store.NotificationFeed
	preferences *store.FilePreferenceStore
	users       store.UserStore
	database    *db.DB
	gatherer    prometheus.Gatherer
	oauthCfg    *oauth2.Config
	userInfoURL string
	limiter     *sessionLimiter
	// keepAlive is the SSE comment interval.
	keepAlive time.Duration
}

func New(cfg config.Config, opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	prompts := opts.Prompts
	if prompts == nil {
		prompts = mentor.DefaultPrompts()
	}
	if opts.Feed == nil {
		opts.Feed = store.NewMemoryNotificationFeed()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:      r,
		cfg:         cfg,
		sessions:    opts.Sessions,
		bus:         opts.Bus,
		prompts:     prompts,
		auth:        store.NewMemoryStore(),
		feed:        opts.Feed,
		preferences: opts.Preferences,
		users:       opts.Users,
		database:    opts.Database,
		gatherer:    opts.Gatherer,
		oauthCfg:    opts.OAuth,
		userInfoURL: googleUserInfoURL,
		limiter:     newSessionLimiter(cfg.ChatRatePerMinute),
		keepAlive:   15 * time.Second,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	// Identity
	s.router.Get("/api/auth/status", s.handleAuthStatus)
	s.router.Get("/api/auth/login", s.handleAuthLogin)
	s.router.Get("/api/auth/callback", s.handleAuthCallback)
	s.router.Post("/api/auth/logout", s.handleAuthLogout)
	// Chat pipeline
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/chat/state", s.handleChatState)
	s.router.Get("/api/chat/events", s.handleChatEvents)
	s.router.Get("/api/prompts", s.handlePrompts)
	// Notifications
	s.router.Get("/api/notifications", s.handleNotifications)
	s.router.Post("/api/notifications", s.handleCreateNotification)
	s.router.Get("/api/notifications/stream", s.handleNotificationStream)
	// Preferences
	s.router.Get("/api/theme", s.handleGetTheme)
	s.router.Put("/api/theme", s.handlePutTheme)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "sessions": s.sessions.Len()}
	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.database.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("database health check failed")
			resp["database"] = "error"
		} else {
			resp["database"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return uuid.NewString()
}

// getSessionID retrieves the session ID from cookie, header or query parameter.
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or mints one and sets the
// cookie.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		log.Debug().Str("session_id", sid).Str("path", r.URL.Path).Msg("creating new session")
		SetSessionCookie(w, sid, s.cfg.SecureCookies)
	}
	w.Header().Set("X-Session-Id", sid)
	return sid
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
