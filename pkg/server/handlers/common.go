// Package handlers implements the HTTP handlers behind the five spec §6
// endpoints: ingest, search, edge update, episode delete, health.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kortexhq/kortex/pkg/server/dto"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeErrorJSON writes an error response as JSON.
func writeErrorJSON(w http.ResponseWriter, status int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
