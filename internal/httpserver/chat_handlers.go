package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kocmoc/internal/domain"
	"kocmoc/internal/service"
)

func handleListChats(chats *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		list, err := chats.ListForUser(r.Context(), caller.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createChatRequest struct {
	IsGroup   bool     `json:"is_group"`
	Name      string   `json:"name,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	MemberIDs []string `json:"member_ids,omitempty"`
}

func handleCreateChat(chats *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)

		var chat *domain.Chat
		var err error
		if req.IsGroup {
			chat, err = chats.CreateGroup(r.Context(), caller.ID, req.Name, req.MemberIDs)
		} else {
			chat, err = chats.OpenDirect(r.Context(), caller.ID, req.UserID)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, chat)
	}
}

func handleGetChat(chats *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		chat, members, err := chats.Get(r.Context(), chi.URLParam(r, "id"), caller.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chat":    chat,
			"members": members,
		})
	}
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func handleAddMember(chats *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		caller := CurrentUser(r)
		if err := chats.AddMember(r.Context(), chi.URLParam(r, "id"), caller.ID, req.UserID, req.Role); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "member added"})
	}
}

func handleDeleteChat(chats *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		if err := chats.Delete(r.Context(), chi.URLParam(r, "id"), caller.ID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "chat deleted"})
	}
}
