package httpapi

import (
	"net/http"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/usecase"
)

// SendMessage dispatches one outbound WhatsApp message.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SendMessageInput](w, r)
	if !ok {
		return
	}
	result, err := h.service.SendMessage(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListConversations returns a page of the tenant's conversations.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context(),
		r.URL.Query().Get("status"),
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// GetConversation returns one conversation by ID.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.service.GetConversation(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// ListMessages returns a page of messages in one conversation.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(r.Context(), urlParam(r, "id"),
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// conversationStatusUpdate is the status change body.
type conversationStatusUpdate struct {
	Status string `json:"status"`
}

// UpdateConversationStatus moves a conversation through its lifecycle.
func (h *Handlers) UpdateConversationStatus(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[conversationStatusUpdate](w, r)
	if !ok {
		return
	}
	if err := h.service.UpdateConversationStatus(r.Context(), urlParam(r, "id"), input.Status); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
