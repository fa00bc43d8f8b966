package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"social-posts-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidID    = "Error. Identificador inválido."
	msgInvalidBody  = "Error. El cuerpo de la petición no es válido."
	msgFileTooLarge = "Error. El archivo supera el tamaño permitido."
)

// MessageResponse is the body of every error and of plain confirmations
type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, MessageResponse{Message: message})
}

// respondServiceError maps a service error to its status code. Anything that
// is not a *services.Error is treated as internal.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		svcErr = &services.Error{Kind: services.KindInternal, Message: services.MsgInternal, Err: err}
	}

	status := statusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(svcErr.Err).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	respondError(w, svcErr.Message, status)
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads a positive integer URL parameter
func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
