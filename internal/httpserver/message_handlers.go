package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kocmoc/internal/service"
)

func handleListMessages(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		list, err := messages.List(r.Context(), chi.URLParam(r, "id"), caller.ID, limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createMessageRequest struct {
	Type       string  `json:"type,omitempty"`
	Text       *string `json:"text,omitempty"`
	FileURL    *string `json:"file_url,omitempty"`
	AudioURL   *string `json:"audio_url,omitempty"`
	StickerURL *string `json:"sticker_url,omitempty"`
}

func handleCreateMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)

		msg, err := messages.Append(r.Context(), chi.URLParam(r, "id"), caller.ID, service.MessageInput{
			Type:       req.Type,
			Text:       req.Text,
			FileURL:    req.FileURL,
			AudioURL:   req.AudioURL,
			StickerURL: req.StickerURL,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

type editMessageRequest struct {
	Text string `json:"text"`
}

func handleEditMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)
		msg, err := messages.Edit(r.Context(), chi.URLParam(r, "id"), caller.ID, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		if err := messages.SoftDelete(r.Context(), chi.URLParam(r, "id"), caller.ID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
	}
}

type forwardMessageRequest struct {
	ChatID string `json:"chat_id"`
}

func handleForwardMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forwardMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)
		msg, err := messages.Forward(r.Context(), chi.URLParam(r, "id"), caller.ID, req.ChatID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
