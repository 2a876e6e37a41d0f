package handlers

import (
	"context"
	"net/http"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"

	"github.com/go-chi/chi/v5"
)

// Messenger is the mailbox surface used by MessageHandler
type Messenger interface {
	Send(ctx context.Context, claims auth.Claims, senderID, recipientID, content string) (*models.MessageView, error)
	Get(ctx context.Context, claims auth.Claims, ownerID, id string) (*models.MessageView, error)
	MarkRead(ctx context.Context, claims auth.Claims, ownerID, id string) (*models.Message, error)
	Delete(ctx context.Context, claims auth.Claims, ownerID, id string) error
	Mailbox(ctx context.Context, claims auth.Claims, ownerID string, container models.MessageContainer, p pagination.Params) (*pagination.Page[*models.MessageView], error)
	Thread(ctx context.Context, claims auth.Claims, ownerID, otherID string) ([]*models.MessageView, error)
}

// MessageHandler handles the per-account mailbox
type MessageHandler struct {
	messages Messenger
	pages    PageConfig
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages Messenger, pages PageConfig) *MessageHandler {
	return &MessageHandler{messages: messages, pages: pages}
}

// SendMessageRequest is the payload of a new message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// Mailbox handles GET /api/users/{userId}/messages
func (h *MessageHandler) Mailbox(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	container := models.ParseMessageContainer(r.URL.Query().Get("messageContainer"))
	page, err := h.messages.Mailbox(r.Context(), claims, chi.URLParam(r, "userId"), container, h.pages.params(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get messages")
		return
	}

	setPaginationHeader(w, page.Meta)
	respondJSON(w, http.StatusOK, page.Items)
}

// Thread handles GET /api/users/{userId}/messages/thread/{otherId}
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	thread, err := h.messages.Thread(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "otherId"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get message thread")
		return
	}

	respondJSON(w, http.StatusOK, thread)
}

// GetMessage handles GET /api/users/{userId}/messages/{id}
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	msg, err := h.messages.Get(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get message")
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

// Send handles POST /api/users/{userId}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messages.Send(r.Context(), claims, chi.URLParam(r, "userId"), req.RecipientID, req.Content)
	if err != nil {
		respondServiceError(w, r, err, "Failed to send message")
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

// Delete handles POST /api/users/{userId}/messages/{id}. It hides the message
// on the caller's side.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if err := h.messages.Delete(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "Failed to delete message")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRead handles POST /api/users/{userId}/messages/{id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if _, err := h.messages.MarkRead(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "Failed to mark message read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
