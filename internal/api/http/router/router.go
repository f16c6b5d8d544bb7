package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/api/http/handler"
	"github.com/dtroode/gophfeed/internal/api/http/middleware"
	"github.com/dtroode/gophfeed/internal/guard"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/metrics"
)

// Config carries the collaborators of the BFF router. Google, Gatherer and
// Recorder are optional.
type Config struct {
	Registry middleware.ScopeRegistry
	Policy   guard.Policy
	Cookie   middleware.CookieConfig
	Google   handler.OAuthFlow
	Gatherer prometheus.Gatherer
	Recorder middleware.RequestRecorder
}

// Router represents the HTTP router of the web client backend.
// It wires session scoping, route guarding and the handlers together.
type Router struct {
	cfg    Config
	ctxMgr *scopectx.Manager
	logger *logger.Logger
}

// New creates new HTTP Router instance.
func New(cfg Config, logger *logger.Logger) *Router {
	return &Router{
		cfg:    cfg,
		ctxMgr: scopectx.NewManager(),
		logger: logger,
	}
}

// Register builds the route tree.
//
// Pages pass through the route guard and are redirected by session state;
// API routes under /api require an authenticated session and answer with
// status codes instead of redirects.
func (r *Router) Register() http.Handler {
	mux := chi.NewRouter()

	logging := middleware.NewLogging(r.logger, r.cfg.Recorder)
	mux.Use(chimw.Recoverer)
	mux.Use(logging.Handle)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if r.cfg.Gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(r.cfg.Gatherer))
	}

	session := middleware.NewSession(r.cfg.Registry, r.ctxMgr, r.cfg.Cookie, r.logger)
	guards := middleware.NewGuard(r.cfg.Policy, r.ctxMgr, r.logger)

	mux.Group(func(mux chi.Router) {
		mux.Use(session.Handle)

		r.registerAuthRoutes(mux)
		r.registerSessionRoutes(mux)

		mux.Group(func(mux chi.Router) {
			mux.Use(guards.Authenticated)
			r.registerContentRoutes(mux)
		})

		mux.Group(func(mux chi.Router) {
			mux.Use(guards.Pages)
			r.registerPageRoutes(mux)
		})
	})

	return mux
}

func (r *Router) registerAuthRoutes(mux chi.Router) {
	if r.cfg.Google == nil {
		return
	}
	h := handler.NewGoogle(r.cfg.Google, r.ctxMgr, r.cfg.Cookie.Secure, r.cfg.Policy.LoginPath, r.cfg.Policy.HomePath, r.logger)
	mux.Get("/auth/google", h.Start)
	mux.Get("/auth/google/callback", h.Callback)
}

func (r *Router) registerSessionRoutes(mux chi.Router) {
	h := handler.NewSession(r.ctxMgr, r.cfg.Policy, r.logger)
	mux.Route("/api/session", func(mux chi.Router) {
		mux.Get("/", h.Status)
		mux.Get("/navigate", h.Navigate)
		mux.Post("/login", h.Login)
		mux.Post("/register", h.Register)
		mux.Post("/complete-registration", h.CompleteRegistration)
		mux.Post("/logout", h.Logout)
		mux.Post("/refresh", h.Refresh)
	})
}

func (r *Router) registerContentRoutes(mux chi.Router) {
	h := handler.NewContent(r.ctxMgr, r.logger)

	mux.Route("/api/feed", func(mux chi.Router) {
		mux.Get("/", h.Feed)
		mux.Post("/more", h.LoadMore)
		mux.Post("/refresh", h.RefreshFeed)
	})

	mux.Route("/api/posts", func(mux chi.Router) {
		mux.Post("/", h.CreatePost)
		mux.Get("/{id}", h.Post)
		mux.Delete("/{id}", h.DeletePost)
		mux.Post("/{id}/like", h.TogglePostLike)
		mux.Get("/{id}/comments", h.Comments)
		mux.Post("/{id}/comments", h.AddComment)
		mux.Post("/{id}/comments/{commentID}/like", h.ToggleCommentLike)
	})

	mux.Route("/api/users", func(mux chi.Router) {
		mux.Put("/me", h.UpdateProfile)
		mux.Get("/{id}", h.User)
		mux.Get("/{id}/posts", h.UserPosts)
		mux.Post("/{id}/follow", h.ToggleFollow)
	})

	mux.Post("/api/media", h.Upload)
}

func (r *Router) registerPageRoutes(mux chi.Router) {
	h := handler.NewPage(r.ctxMgr, r.logger)
	for _, path := range []string{"/", "/login", "/register", "/complete-profile", "/profile/{id}", "/post/{id}"} {
		mux.Get(path, h.Render)
	}
}
