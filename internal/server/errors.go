package web

import (
	"errors"
	"net/http"

	"github.com/kashifkhan1020/KamiNewMods/internal/admin"
	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"go.uber.org/zap"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateSlug), errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, intake.ErrInvalidFormat), errors.Is(err, resolve.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, admin.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, intake.ErrIO):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError sends a plaintext error. Internal failures are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
		msg = "internal error"
	}
	http.Error(w, msg, code)
}
