package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/medrecords/internal/async"
	"github.com/joseph-ayodele/medrecords/internal/common"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case common.IsCancellation(err):
		return http.StatusRequestTimeout
	case errors.Is(err, common.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusText(statusFor(err))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := common.LoggerFromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("http.error", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Warn("http.error", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: codeFor(err), Message: err.Error()})
}
