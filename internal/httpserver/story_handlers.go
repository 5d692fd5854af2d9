package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kocmoc/internal/service"
)

func handleListStories(stories *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := stories.ListActive(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type publishStoryRequest struct {
	Type      string    `json:"type"`
	MediaURL  string    `json:"media_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func handlePublishStory(stories *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req publishStoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)
		story, err := stories.Publish(r.Context(), caller.ID, req.Type, req.MediaURL, req.ExpiresAt)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, story)
	}
}

func handleViewStory(stories *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		if err := stories.RecordView(r.Context(), chi.URLParam(r, "id"), caller.ID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "view recorded"})
	}
}
