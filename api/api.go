// Package api exposes the catalog over HTTP.
//
// Routes:
//   - GET    /health
//   - GET    /                        catalog page
//   - POST   /guides
//   - GET    /guides
//   - GET    /guides/:id              guide page
//   - DELETE /guides/:id
//   - GET    /guides/:id/tracks
//   - GET    /tracks/:id/audio
package api

import (
	"audioguide/audiofilestore"
	"audioguide/catalog"

	"github.com/cdfmlr/crud/log"
	"github.com/gin-gonic/gin"
)

var logger = log.ZoneLogger("audioguide/api")

// Handler serves the catalog routes.
type Handler struct {
	store catalog.Store
	audio audiofilestore.Source
}

func NewHandler(store catalog.Store, audio audiofilestore.Source) *Handler {
	return &Handler{store: store, audio: audio}
}

// RegisterRoutes adds the routes to r. The HTML views need the engine's
// templates set to web.Templates().
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/", h.Homepage)

	guides := r.Group("/guides")
	{
		guides.POST("", h.PostGuide)
		guides.GET("", h.ListGuides)
		guides.GET("/:id", h.ReadGuide)
		guides.DELETE("/:id", h.DeleteGuide)
		guides.GET("/:id/tracks", h.GetGuideTracks)
	}

	r.GET("/tracks/:id/audio", h.StreamAudio)
}
