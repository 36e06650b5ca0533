package middleware

import (
	"net/http"
	"strings"
	"time"

	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderAdminToken = "X-Admin-Token"

	// Context keys
	CtxClientID  = "client_id"
	CtxRequestID = "request_id"
)

// ClientID returns the wallet owner set by JWTAuth.
func ClientID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxClientID)
	if !ok {
		return "", false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// RequestID propagates or mints a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// JWTAuth requires a valid client token in the Authorization header. With
// allowQuery set, ?token= is accepted as well (browsers cannot set headers
// on websocket upgrades).
func JWTAuth(tokenSvc ports.TokenService, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" && allowQuery {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Abort(c, apperror.ErrInvalidToken().WithDetail(err.Error()))
			return
		}

		c.Set(CtxClientID, claims.ClientID)
		c.Next()
	}
}

// OptionalJWT sets the client id when a valid token is present and never rejects.
func OptionalJWT(tokenSvc ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			if claims, err := tokenSvc.Validate(tokenStr); err == nil {
				c.Set(CtxClientID, claims.ClientID)
			}
		}
		c.Next()
	}
}

// AdminAuth checks X-Admin-Token against an Argon2id hash.
func AdminAuth(hashSvc ports.HashService, tokenHash string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderAdminToken)
		if token == "" {
			response.Abort(c, apperror.ErrAdminForbidden())
			return
		}
		ok, err := hashSvc.Verify(token, tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("admin token hash is unusable")
			response.Abort(c, apperror.ErrAdminForbidden())
			return
		}
		if !ok {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("admin token rejected")
			response.Abort(c, apperror.ErrAdminForbidden())
			return
		}
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Abort(c, apperror.New("SYS_001", "Internal server error", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}

// MaxBodySize limits the request body; reads past maxBytes fail.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
