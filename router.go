package main

import (
	"audioguide/api"
	"audioguide/audiofilestore"
	"audioguide/catalog"
	"audioguide/web"

	"github.com/cdfmlr/crud/router"
	"github.com/gin-gonic/gin"
)

// MakeRouter wires the catalog routes, the HTML views
// and (for local audio) the static /audio files.
func MakeRouter(store catalog.Store, audio audiofilestore.Source, local *audiofilestore.AudioFileStore) *gin.Engine {
	r := router.NewRouter()
	r.Use(api.RequestLogger())

	r.SetHTMLTemplate(web.Templates())

	api.NewHandler(store, audio).RegisterRoutes(r)

	// static audio file
	if local != nil {
		local.RegisterRoutes(r)
	}

	return r
}
