package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/PageCast/internal/broadcast"
)

const serviceName = "pagecast"

// LoopStats is the read side of the broadcast loop.
type LoopStats interface {
	Stats() broadcast.Stats
}

// ViewerCounter is the read side of the viewer registry.
type ViewerCounter interface {
	Len() int
	Limit() int
}

// PageInfo describes what is being streamed.
type PageInfo struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
	Quality      int    `json:"quality"`
	InputEnabled bool   `json:"input_enabled"`
}

// Handlers contains the JSON endpoints of the gateway.
type Handlers struct {
	page    PageInfo
	viewers ViewerCounter
	loop    LoopStats
	started time.Time
}

// NewHandlers creates a handler set.
func NewHandlers(page PageInfo, viewers ViewerCounter, loop LoopStats) *Handlers {
	return &Handlers{
		page:    page,
		viewers: viewers,
		loop:    loop,
		started: time.Now(),
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"viewers": h.viewers.Len(),
		"loop":    h.loop.Stats().State,
	})
}

// Status reports what is streamed and how the loop is doing.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     serviceName,
		"target":      h.page,
		"viewers":     h.viewers.Len(),
		"max_viewers": h.viewers.Limit(),
		"loop":        h.loop.Stats(),
		"uptime":      time.Since(h.started).Round(time.Second).String(),
	})
}
