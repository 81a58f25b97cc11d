package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"aulabot/internal/aula"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, map[string]string{"error": userMsg})
}

// respondWithClientError maps the portal client's error taxonomy to HTTP
// statuses: missing precondition is the caller's to fix, everything fatal on
// the portal side surfaces as a bad gateway.
func respondWithClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aula.ErrNoActiveChild):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, aula.ErrLoginFailed), errors.Is(err, aula.ErrAccessDenied), errors.Is(err, aula.ErrAPIUnreachable):
		respondWithError(w, http.StatusBadGateway, err.Error(), "portal authentication failed", err)
	default:
		respondWithError(w, http.StatusInternalServerError, "portal request failed", "portal request failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
