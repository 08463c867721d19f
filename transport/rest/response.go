package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

// WriteError - writes err as {"error","code"} with the status StatusCode picks.
func WriteError(logger *slog.Logger, w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	writeJSON(logger, w, status, errorBody{Error: err.Error(), Code: apperror.Code(err)})
}

// StatusCode - maps an application error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound),
		errors.Is(err, apperror.ErrInvalidRoomCode),
		errors.Is(err, apperror.ErrUnknownGameType):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomFull),
		errors.Is(err, apperror.ErrGameInProgress),
		errors.Is(err, apperror.ErrGameTypeMismatch),
		errors.Is(err, apperror.ErrMalformedMessage),
		errors.Is(err, apperror.ErrMissingPlayerID):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody - reads a JSON body into T. An empty body leaves T zero.
func decodeBody[T any](r *http.Request) (T, error) {
	var body T
	if r.Body == nil {
		return body, nil
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return body, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	return body, nil
}

const maxBodySize = 64 << 10
