// Package api exposes the record store over HTTP/JSON using gin.
//
// Routes per routed category (input, output):
//
//	POST   /<category>      create
//	GET    /<category>      list
//	GET    /<category>/:id  get
//	PUT    /<category>/:id  replace payload
//	DELETE /<category>/:id  delete
//
// The mapping category is stored but never routed.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/entries/internal/config"
	"github.com/roach88/entries/internal/record"
)

// RoutedCategories are the categories that get HTTP routes.
var RoutedCategories = []record.Category{record.CategoryInput, record.CategoryOutput}

// Registrar attaches a group of routes to a router.
type Registrar interface {
	RegisterRoute(gin.IRouter)
}

// Options configures the router.
type Options struct {
	Store record.Store

	// StaticDir is served for unmatched GET and HEAD requests. Empty
	// disables static serving.
	StaticDir string

	// MaxBodyBytes caps request bodies. Zero means config.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Logger receives the debug request log. Nil means slog.Default().
	Logger *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(opts.Logger),
		CorsHandler(),
		BodyLimit(opts.MaxBodyBytes),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.PureJSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, category := range RoutedCategories {
		NewRouteRegistrar(opts.Store, category).RegisterRoute(router.Group("/" + string(category)))
	}

	router.NoRoute(StaticFallback(opts.StaticDir))
	return router
}
