package handlers

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondWithData(w http.ResponseWriter, code int, data any) {
	writeResponse(w, code, apiResponse{Success: true, Data: data})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	writeResponse(w, code, apiResponse{Success: false, Error: message})
}

func writeResponse(w http.ResponseWriter, code int, payload apiResponse) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
