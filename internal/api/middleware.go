package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CorsHandler applies a permissive cross-origin policy. The request Origin
// is echoed when present, otherwise any origin is allowed. Preflight
// requests end here with 204.
func CorsHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		SetCorsHeaders(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

// SetCorsHeaders sets the CORS headers without overriding any already set.
func SetCorsHeaders(w http.ResponseWriter, r *http.Request) {
	set := func(k, v string) {
		if len(w.Header().Get(k)) > 0 {
			return
		}
		w.Header().Set(k, v)
	}

	if origin := r.Header.Get("Origin"); len(origin) > 0 {
		set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	} else {
		set("Access-Control-Allow-Origin", "*")
	}

	set("Access-Control-Allow-Methods", "GET, HEAD, PUT, PATCH, POST, DELETE, OPTIONS")
	if requested := r.Header.Get("Access-Control-Request-Headers"); len(requested) > 0 {
		set("Access-Control-Allow-Headers", requested)
	} else {
		set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
	}
	set("Access-Control-Expose-Headers", "ETag")
}

// BodyLimit caps the request body at limit bytes. Reads past the limit fail
// with *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}

// RequestLogger logs each request at debug level after it completes.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Debug("request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"bytes", ctx.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}
