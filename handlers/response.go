package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/middleware"
	"ttnmanager/repository"
)

const maxBodyBytes = 1 << 20

// ApiResponse is the success envelope.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data})
}

// writeError maps err onto the error taxonomy. Server-side failures are
// logged with their cause.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		var se *repository.StorageError
		if errors.As(err, &se) {
			appErr = apperror.Storage(err)
		} else {
			appErr = apperror.Internal(err)
		}
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("kind", string(appErr.Kind)),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Err))
	}
	writeJSON(w, status, ErrorResponse{Error: appErr.Message, Details: appErr.Details})
}

// decodeJSON reads a JSON body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("request body is required")
		}
		return apperror.Validation("invalid request payload: %v", err)
	}
	if err := middleware.Validator().Struct(dst); err != nil {
		return apperror.Validation("%s", middleware.ValidationMessage(err))
	}
	return nil
}

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", apperror.AuthRequired()
	}
	return userID, nil
}

// queryPage parses an optional positive page number.
func queryPage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, apperror.Validation("page must be a positive integer")
	}
	return page, nil
}
