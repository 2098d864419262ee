// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the HTTP trigger surface the external scheduler
// calls. One POST starts one sync invocation and blocks until it finishes;
// the server holds no state of its own beyond the optional run journal it
// reads for reporting.
package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/kb-sync/internal/pipeline"
	"github.com/pdiddy/kb-sync/pkg/types"
)

// Trigger runs one sync invocation. Satisfied by *pipeline.Runner.
type Trigger interface {
	Run(ctx context.Context, w io.Writer) pipeline.Result
}

// Journal reads recent run records. Satisfied by *runlog.Store.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]types.RunRecord, error)
}

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	trigger Trigger
	journal Journal
	version string
}

// NewHandler builds the endpoint handler. journal may be nil when the run
// journal is disabled.
func NewHandler(trigger Trigger, journal Journal, version string) *Handler {
	return &Handler{trigger: trigger, journal: journal, version: version}
}

// New assembles the gin engine with all routes. When apiKey is non-empty
// the sync and journal endpoints require it in the X-API-Key header; the
// health endpoint stays open for liveness probes.
func New(h *Handler, apiKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)

	guarded := r.Group("/")
	if apiKey != "" {
		guarded.Use(authMiddleware(apiKey))
	}
	guarded.POST("/sync", h.Sync)
	guarded.GET("/runs", h.Runs)

	return r
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Sync runs one pipeline invocation synchronously. A completed run (even a
// partially failed one) is a 2xx; a fatal-stage failure surfaces as 502
// with the error detail.
func (h *Handler) Sync(c *gin.Context) {
	res := h.trigger.Run(c.Request.Context(), io.Discard)

	if res.Err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"state":   res.State,
			"summary": res.Summary,
			"error":   res.Err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":   res.State,
		"summary": res.Summary,
	})
}

// Runs returns recent journal entries, newest first.
func (h *Handler) Runs(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run journal is disabled"})
		return
	}

	records, err := h.journal.Recent(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []types.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": records})
}

func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
