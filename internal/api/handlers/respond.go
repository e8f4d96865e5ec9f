package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps application error types onto HTTP status codes.
// Unexpected errors are logged with the request's trace context before the
// generic response goes out.
func respondWithAppError(ctx context.Context, w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeExternal:
			observability.LoggerFromContext(ctx).Error().Err(err).Msg("upstream call failed")
			respondWithError(w, http.StatusBadGateway, appErr.Message)
		default:
			observability.LoggerFromContext(ctx).Error().Err(err).Msg("request failed")
			respondWithError(w, http.StatusInternalServerError, appErr.Message)
		}
		return
	}
	observability.LoggerFromContext(ctx).Error().Err(err).Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, err.Error())
}
