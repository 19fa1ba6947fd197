package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reacttracker/services/trackers"
)

// AdminHandler serves the read-only observability surface: a health probe and
// a summary of what is currently tracked. It never mutates the store.
type AdminHandler struct {
	trackersService *trackers.TrackersService
}

func NewAdminHandler(trackersService *trackers.TrackersService) *AdminHandler {
	return &AdminHandler{trackersService: trackersService}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/trackers", h.HandleListTrackers).Methods(http.MethodGet)
}

type HealthResponse struct {
	Status       string `json:"status"`
	TrackedItems int    `json:"tracked_items"`
}

type TrackerSummary struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	OwnerID       string    `json:"owner_id"`
	OwnerModule   string    `json:"owner_module"`
	TotalEntries  int       `json:"total_entries"`
	ActiveEntries int       `json:"active_entries"`
	ExpiresAt     time.Time `json:"expires_at"`
	HasMessageRef bool      `json:"has_message_ref"`
}

func (h *AdminHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		TrackedItems: h.trackersService.Count(r.Context()),
	})
}

func (h *AdminHandler) HandleListTrackers(w http.ResponseWriter, r *http.Request) {
	items := h.trackersService.ListTrackedItems(r.Context())

	summaries := make([]TrackerSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, TrackerSummary{
			ID:            item.ID,
			MessageID:     item.MessageID,
			OwnerID:       item.Owner.ID,
			OwnerModule:   item.OwnerModule,
			TotalEntries:  len(item.Entries),
			ActiveEntries: len(item.ActiveEntries()),
			ExpiresAt:     item.ExpiresAt,
			HasMessageRef: item.Message != nil,
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}
