package api

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// StaticFallback handles requests no route matched. GET and HEAD requests
// for files under dir are served from disk (a directory serves its
// index.html); everything else is a JSON 404.
func StaticFallback(dir string) gin.HandlerFunc {
	var fs http.FileSystem
	if dir != "" {
		fs = http.Dir(dir)
	}

	return func(ctx *gin.Context) {
		method := ctx.Request.Method
		if fs != nil && (method == http.MethodGet || method == http.MethodHead) {
			if name, ok := resolveStatic(fs, ctx.Request.URL.Path); ok {
				ctx.FileFromFS(name, fs)
				return
			}
		}
		writeError(ctx, http.StatusNotFound, "not found")
	}
}

// resolveStatic reports whether urlPath names a regular file in fs, or a
// directory containing index.html.
func resolveStatic(fs http.FileSystem, urlPath string) (string, bool) {
	name := path.Clean("/" + urlPath)

	f, err := fs.Open(name)
	if err != nil {
		return "", false
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		return name, true
	}

	index := path.Join(name, "index.html")
	f, err = fs.Open(index)
	if err != nil {
		return "", false
	}
	f.Close()
	return name, true
}
