package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"audioguide/audiofilestore"
	"audioguide/catalog"

	"github.com/gin-gonic/gin"
)

// abortWithError writes the error response matching err:
//
//   - 422: {detail: [{loc, msg, type}, ...]} for validation errors
//   - 404: {detail: "Guide not found" | "Track not found" | "Audio file not found"}
//   - 500: {detail: "internal server error"}
func abortWithError(c *gin.Context, err error) {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": verr.Fields})
	case errors.Is(err, catalog.ErrGuideNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Guide not found"})
	case errors.Is(err, catalog.ErrTrackNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Track not found"})
	case errors.Is(err, audiofilestore.ErrAudioNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Audio file not found"})
	default:
		logger.WithContext(c).
			WithField("path", c.Request.URL.Path).
			WithError(err).
			Error("request failed")
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

var errTrailingData = errors.New("unexpected data after the json object")

// bodyError converts a json decoding error into a *catalog.ValidationError
// located at ["body", loc...].
func bodyError(err error, loc ...any) error {
	base := append([]any{"body"}, loc...)

	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr):
		l := base
		if typeErr.Field != "" {
			for _, f := range strings.Split(typeErr.Field, ".") {
				l = append(l, f)
			}
		}
		return &catalog.ValidationError{Fields: []catalog.FieldError{{
			Loc:  l,
			Msg:  "Input should be a valid " + typeErr.Type.String(),
			Type: "type_error",
		}}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, errTrailingData):
		return &catalog.ValidationError{Fields: []catalog.FieldError{{
			Loc:  base,
			Msg:  "JSON decode error",
			Type: "json_invalid",
		}}}
	default:
		return &catalog.ValidationError{Fields: []catalog.FieldError{{
			Loc:  base,
			Msg:  err.Error(),
			Type: "value_error",
		}}}
	}
}

func pathIDError(name string) error {
	return &catalog.ValidationError{Fields: []catalog.FieldError{{
		Loc:  []any{"path", name},
		Msg:  "Input should be a valid integer, unable to parse string as an integer",
		Type: "int_parsing",
	}}}
}
