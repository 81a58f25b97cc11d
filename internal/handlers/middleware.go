package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Logging middleware logs HTTP requests, tagging each with a short request id
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()[:8]

		next.ServeHTTP(w, r)

		log.Printf("[%s] %s %s (%v)", requestID, r.Method, r.URL.Path, time.Since(start))
	})
}
