package web

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

const (
	ctxIdentity = "identity"
	ctxToken    = "session_token"
)

// sessionMiddleware resolves the session cookie into an identity. A missing
// or stale cookie leaves the request anonymous.
func sessionMiddleware(auth *service.AuthService, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			c.Set(ctxToken, cookie.Value)
			if who := auth.Resolve(c.Request().Context(), cookie.Value); who != nil {
				c.Set(ctxIdentity, who)
			}
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) *model.Identity {
	who, _ := c.Get(ctxIdentity).(*model.Identity)
	return who
}

func tokenFrom(c echo.Context) string {
	token, _ := c.Get(ctxToken).(string)
	return token
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
				"ip":      v.RemoteIP,
			}
			if who := identityFrom(c); who != nil {
				fields["user_id"] = who.UserID
			}
			entry := logger.WithFields(fields)
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Info("request")
			return nil
		},
	})
}
