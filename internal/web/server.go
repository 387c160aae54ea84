// Package web is the HTTP surface: form-posted actions and server-rendered
// board pages on echo.
package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"taskboard/internal/action"
	"taskboard/internal/service"
	"taskboard/internal/view"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Actions *action.Dispatcher
	Reader  view.Reader
	Auth    *service.AuthService
}

type Options struct {
	CookieName         string
	CookieSecure       bool
	SessionTTL         time.Duration
	LoginRatePerMinute int
}

// New builds an echo instance with the shared middleware and every route.
func New(deps Deps, opts Options, logger *log.Logger) *echo.Echo {
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer()
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(sessionMiddleware(deps.Auth, opts.CookieName))
	Register(e, deps, opts, logger)
	return e
}

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, deps Deps, opts Options, logger *log.Logger) {
	h := &handlers{deps: deps, opts: opts, log: logger}

	e.GET("/", h.index)
	e.GET("/boards/:id", h.board)
	e.GET("/login", h.loginForm)
	e.GET("/register", h.registerForm)
	e.POST("/actions/:name", h.postAction, credentialLimiter(opts.LoginRatePerMinute))
	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// credentialLimiter throttles login and register per client IP. Other
// actions pass through.
func credentialLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 20
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     perMinute,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			name := c.Param("name")
			return name != "login" && name != "register"
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
		},
	})
}
