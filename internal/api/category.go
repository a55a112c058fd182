package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

type service struct {
	store    record.Store
	category record.Category
}

// NewRouteRegistrar returns the CRUD routes for one category. Register it on
// a group rooted at "/<category>".
func NewRouteRegistrar(store record.Store, category record.Category) Registrar {
	return service{store: store, category: category}
}

func (s service) RegisterRoute(router gin.IRouter) {
	router.POST("", s.Create)
	router.GET("", s.List)
	router.GET("/:id", s.Get)
	router.PUT("/:id", s.Update)
	router.DELETE("/:id", s.Delete)
}

// Create stores the request body as a new record: 201 with the record.
func (s service) Create(ctx *gin.Context) {
	payload, err := readPayload(ctx)
	if err != nil {
		s.fail(ctx, err, http.StatusBadRequest)
		return
	}

	rec, err := s.store.Create(ctx.Request.Context(), s.category, payload)
	if err != nil {
		s.fail(ctx, err, http.StatusBadRequest)
		return
	}
	writeRecord(ctx, http.StatusCreated, rec)
}

// List returns every record of the category: 200 with an array.
func (s service) List(ctx *gin.Context) {
	records, err := s.store.List(ctx.Request.Context(), s.category)
	if err != nil {
		s.fail(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.PureJSON(http.StatusOK, records)
}

// Get returns one record: 200, or 404 when it does not exist in this category.
func (s service) Get(ctx *gin.Context) {
	rec, err := s.store.Get(ctx.Request.Context(), s.category, ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err, http.StatusInternalServerError)
		return
	}
	writeRecord(ctx, http.StatusOK, rec)
}

// Update replaces the payload wholesale: 200 with the updated record.
func (s service) Update(ctx *gin.Context) {
	payload, err := readPayload(ctx)
	if err != nil {
		s.fail(ctx, err, http.StatusBadRequest)
		return
	}

	rec, err := s.store.Update(ctx.Request.Context(), s.category, ctx.Param("id"), payload)
	if err != nil {
		s.fail(ctx, err, http.StatusBadRequest)
		return
	}
	writeRecord(ctx, http.StatusOK, rec)
}

// Delete removes a record: 200 with a confirmation and the deleted snapshot.
func (s service) Delete(ctx *gin.Context) {
	rec, err := s.store.Delete(ctx.Request.Context(), s.category, ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s entry deleted", s.category.Title()),
		"entry":   rec,
	})
}

// fail writes an error response. Validation errors are 400, unknown ids 404
// and oversized bodies 413; anything else gets the route's fallback status.
func (s service) fail(ctx *gin.Context, err error, fallback int) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(ctx, http.StatusRequestEntityTooLarge, "request entity too large")
	case record.IsValidationError(err):
		writeError(ctx, http.StatusBadRequest, err.Error())
	case record.IsNotFound(err):
		writeError(ctx, http.StatusNotFound, fmt.Sprintf("%s entry not found", s.category.Title()))
	default:
		writeError(ctx, fallback, err.Error())
	}
}

func readPayload(ctx *gin.Context) (doc.Value, error) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return nil, err
	}
	return record.ParsePayload(body)
}

// writeRecord sends a single record with its payload hash as ETag.
func writeRecord(ctx *gin.Context, status int, rec record.Record) {
	if hash, err := doc.Hash(rec.Payload); err == nil {
		ctx.Header("ETag", `"`+hash+`"`)
	}
	ctx.PureJSON(status, rec)
}

func writeError(ctx *gin.Context, status int, message string) {
	ctx.Abort()
	ctx.PureJSON(status, gin.H{"error": message})
}
