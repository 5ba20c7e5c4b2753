package api

import (
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Response is the JSON envelope for every non-file response.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Status: "success", Data: data})
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Status: "error", Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusBadRequest, message)
}

func notFound(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusNotFound, message)
}

func internalError(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusInternalServerError, message)
}
