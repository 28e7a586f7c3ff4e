package server

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service-layer errors onto HTTP statuses.
// Validation failures are the caller's fault; everything else is ours.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *pkgerrors.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
