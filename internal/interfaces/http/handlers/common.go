// Package handlers implements the HTTP handlers of the API server.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/interfaces/wire"
	"github.com/turtacn/helmkit/pkg/errors"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its HTTP status. Server errors are logged and
// their message masked.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status := errors.HTTPStatus(err)
	resp := wire.ToErrorResponse(err)
	resp.RequestID = chimw.GetReqID(r.Context())

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("request_id", resp.RequestID),
			logging.Err(err))
		var ae *errors.AppError
		if !stderrors.As(err, &ae) {
			resp.Message = errors.DefaultMessageForCode(errors.ErrCodeInternal)
			resp.Detail = ""
		}
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.Newf(errors.ErrCodeBadRequest, "request body exceeds %d bytes", limit)
		case stderrors.Is(err, io.EOF):
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		default:
			return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON body")
		}
	}
	return nil
}

// requireNotation rejects blank notation text before it reaches the parser.
func requireNotation(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrCodeBadRequest, "notation is required")
	}
	return nil
}
