package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"aulabot/internal/models"
)

// PortalClient is the operation surface the HTTP layer exposes. *aula.Client
// satisfies it; tests substitute a fake.
type PortalClient interface {
	SetActiveChild(name string)
	ActiveChild() string
	FetchBasicData(ctx context.Context) (map[string]models.ChildInfo, error)
	FetchDailyOverview(ctx context.Context) (models.DailyOverview, error)
	FetchMessages(ctx context.Context) ([]models.Message, error)
	FetchCalendar(ctx context.Context, days int) ([]models.CalendarEvent, error)
	FetchCalendarByDay(ctx context.Context, days int) (map[string][]models.CalendarEvent, error)
	FetchGallery(ctx context.Context) ([]models.GalleryItem, error)
	CustomAPICall(ctx context.Context, path, body string) (map[string]interface{}, error)
}

// PortalHandler serves the portal operations as a JSON API
type PortalHandler struct {
	client PortalClient
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(client PortalClient) *PortalHandler {
	return &PortalHandler{client: client}
}

// Children returns the flattened child map for the account
func (h *PortalHandler) Children(w http.ResponseWriter, r *http.Request) {
	children, err := h.client.FetchBasicData(r.Context())
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

// SetActiveChild selects the child used by child-scoped operations
func (h *PortalHandler) SetActiveChild(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		respondWithError(w, http.StatusBadRequest, "name is required", "", nil)
		return
	}
	h.client.SetActiveChild(payload.Name)
	writeJSON(w, http.StatusOK, map[string]string{"active_child": payload.Name})
}

// Overview returns today's presence record for the active child
func (h *PortalHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.client.FetchDailyOverview(r.Context())
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Messages returns the unread messages across all threads
func (h *PortalHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.client.FetchMessages(r.Context())
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Calendar returns upcoming events for the active child, grouped by day
// unless structured=false
func (h *PortalHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	days := 14
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(w, http.StatusBadRequest, "days must be a positive integer", "", nil)
			return
		}
		days = parsed
	}

	if r.URL.Query().Get("structured") == "false" {
		events, err := h.client.FetchCalendar(r.Context(), days)
		if err != nil {
			respondWithClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	byDay, err := h.client.FetchCalendarByDay(r.Context(), days)
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, byDay)
}

// Gallery returns the flattened picture list across every album
func (h *PortalHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.client.FetchGallery(r.Context())
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CustomCall proxies an arbitrary API method through the authenticated session
func (h *PortalHandler) CustomCall(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path string `json:"path"`
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Path == "" {
		respondWithError(w, http.StatusBadRequest, "path is required", "", nil)
		return
	}
	result, err := h.client.CustomAPICall(r.Context(), payload.Path, payload.Body)
	if err != nil {
		respondWithClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Health reports liveness without touching the portal
func (h *PortalHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
