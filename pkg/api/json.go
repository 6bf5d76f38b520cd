package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return h.validate.Struct(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]string, len(validationErrors))
		for i, fe := range validationErrors {
			fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		err = errors.New(strings.Join(fields, "; "))
	}
	h.writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("Internal server error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	h.writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
