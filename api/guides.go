package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"audioguide/catalog"
	"audioguide/model"
	"audioguide/web"

	"github.com/gin-gonic/gin"
)

// TrackCreate is a track in a POST /guides body.
// Duration and OrderNum must be present, pointers tell absent from zero.
type TrackCreate struct {
	Title    string   `json:"title"`
	FilePath string   `json:"file_path"`
	Duration *float64 `json:"duration"`
	OrderNum *int     `json:"order_num"`
}

// GuideCreate is a POST /guides body.
// Description must be present, even if empty.
type GuideCreate struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Category    string        `json:"category"`
	Tracks      []TrackCreate `json:"tracks"`
}

// missingFields lists the required fields absent from the body.
func (g *GuideCreate) missingFields() []catalog.FieldError {
	var fields []catalog.FieldError
	if g.Description == nil {
		fields = append(fields, missingField("body", "description"))
	}
	for i, t := range g.Tracks {
		if t.Duration == nil {
			fields = append(fields, missingField("body", "tracks", i, "duration"))
		}
		if t.OrderNum == nil {
			fields = append(fields, missingField("body", "tracks", i, "order_num"))
		}
	}
	return fields
}

func missingField(loc ...any) catalog.FieldError {
	return catalog.FieldError{Loc: loc, Msg: "Field required", Type: "missing"}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

type GuideCreated struct {
	Message string `json:"message"`
	GuideID uint   `json:"guide_id"`
}

// Health handles: GET /health
//
// Response:
//
//   - 200: {status: "ok"}
//   - 503: {detail: "..."} when the store is unreachable
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		logger.WithError(err).Warn("Health: store unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Homepage handles: GET /
//
// Renders the catalog page listing all guides.
func (h *Handler) Homepage(c *gin.Context) {
	guides, err := h.store.ListGuides(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.HTML(http.StatusOK, web.CatalogTemplate, gin.H{"guides": guides})
}

// PostGuide handles: POST /guides
//
// Body: application/json
//
//	{
//	  "title": "...", "description": "...", "category": "...",
//	  "tracks": [{"title": "...", "file_path": "...", "duration": 1.5, "order_num": 1}]
//	}
//
// Tracks are optional. description, duration and order_num must be sent;
// a track without title gets one from its audio file.
//
// Response:
//
//   - 201: {message: "guide saved", guide_id: N}
//   - 422: {detail: [{loc, msg, type}, ...]}
func (h *Handler) PostGuide(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := decodeGuideCreate(c.Request.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}

	guide := model.Guide{
		Title:       req.Title,
		Description: deref(req.Description),
		Category:    req.Category,
	}
	tracks := make([]model.Track, 0, len(req.Tracks))
	for _, t := range req.Tracks {
		track := model.Track{
			Title:    t.Title,
			FilePath: t.FilePath,
			Duration: deref(t.Duration),
			OrderNum: deref(t.OrderNum),
		}
		if track.Title == "" && track.FilePath != "" {
			track.Title = h.audio.DefaultTitle(ctx, track.FilePath)
		}
		tracks = append(tracks, track)
	}

	// report absent fields together with the invalid ones
	if missing := req.missingFields(); len(missing) > 0 {
		fields := missing
		var verr *catalog.ValidationError
		if errors.As(catalog.ValidateGuide(guide, tracks), &verr) {
			fields = append(fields, verr.Fields...)
		}
		abortWithError(c, &catalog.ValidationError{Fields: fields})
		return
	}

	id, err := h.store.CreateGuide(ctx, guide, tracks)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, GuideCreated{Message: "guide saved", GuideID: id})
}

// decodeGuideCreate reads exactly one json object from body.
// Tracks are decoded one by one so errors carry their index.
func decodeGuideCreate(body io.Reader) (*GuideCreate, error) {
	var raw struct {
		GuideCreate
		Tracks []json.RawMessage `json:"tracks"`
	}

	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return nil, bodyError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, bodyError(errTrailingData)
	}

	req := raw.GuideCreate
	req.Tracks = make([]TrackCreate, len(raw.Tracks))
	for i, data := range raw.Tracks {
		if err := json.Unmarshal(data, &req.Tracks[i]); err != nil {
			return nil, bodyError(err, "tracks", i)
		}
	}
	return &req, nil
}

// ListGuides handles: GET /guides
//
// Response:
//
//   - 200: {guides: [{id, title, description, category}, ...]}
func (h *Handler) ListGuides(c *gin.Context) {
	guides, err := h.store.ListGuides(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guides": guides})
}

// ReadGuide handles: GET /guides/:id
//
// Renders the guide page with its tracks ordered by order_num.
func (h *Handler) ReadGuide(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	guide, err := h.store.GetGuide(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tracks, err := h.store.ListTracksForGuide(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.HTML(http.StatusOK, web.GuideTemplate, gin.H{"guide": guide, "tracks": tracks})
}

// DeleteGuide handles: DELETE /guides/:id
//
// Response:
//
//   - 200: {message: "Guide N and its tracks deleted successfully"}
//   - 404: {detail: "Guide not found"}
func (h *Handler) DeleteGuide(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteGuide(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Guide %d and its tracks deleted successfully", id),
	})
}

// GetGuideTracks handles: GET /guides/:id/tracks
//
// Response:
//
//   - 200: {tracks: [...]} ordered by order_num
func (h *Handler) GetGuideTracks(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	tracks, err := h.store.ListTracksForGuide(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// StreamAudio handles: GET /tracks/:id/audio
//
// Response:
//
//   - 200: the audio bytes, Content-Type: audio/mpeg
//   - 404: {detail: "Track not found"} or {detail: "Audio file not found"}
func (h *Handler) StreamAudio(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	track, err := h.store.GetTrack(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// no store lock is held from here on
	audio, err := h.audio.Open(c.Request.Context(), track.FilePath)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer audio.Close()

	c.DataFromReader(http.StatusOK, audio.Size, "audio/mpeg", audio, nil)
}

// idParam parses the :id path parameter, aborting with 422 if it is not
// an integer. Ids below 1 never exist and are returned as 0.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, pathIDError("id"))
		return 0, false
	}
	if id < 1 {
		return 0, true
	}
	return uint(id), true
}
