package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/service"
	apperrors "pdf-workbench/pkg/errors"

	"github.com/gorilla/mux"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// GetRequestID returns the id assigned to the request by RequestLogger.
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeAppError maps err to a status code and writes it. Internal errors
// are logged and their cause is not sent to the client.
func writeAppError(w http.ResponseWriter, logger domain.Logger, err error) {
	appErr := apperrors.FromDomain(err)
	if appErr.Type == apperrors.ErrorTypeInternal {
		logger.Error("Request failed", err)
	}
	body := map[string]string{
		"error": appErr.Message,
		"type":  string(appErr.Type),
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, body)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("Invalid JSON body", err.Error())
	}
	return nil
}

// pathInt parses an integer route variable.
func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a number", name), raw)
	}
	return n, nil
}

// prompter answers the prompts of one request from the answers it carried.
// Requests without answers dismiss every prompt.
func prompter(answers []string) domain.Prompter {
	return service.NewStaticPrompter(answers...)
}
