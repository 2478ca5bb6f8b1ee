package httpapi

import (
	"net/http"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/usecase"
)

// --- WhatsApp account settings ---

// ListWhatsAppAccounts returns the tenant's registered accounts.
func (h *Handlers) ListWhatsAppAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListWhatsAppAccounts(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// SaveWhatsAppAccount registers Cloud API credentials.
func (h *Handlers) SaveWhatsAppAccount(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SaveAccountInput](w, r)
	if !ok {
		return
	}
	account, err := h.service.SaveWhatsAppAccount(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetWhatsAppAccount returns one account by ID.
func (h *Handlers) GetWhatsAppAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetWhatsAppAccount(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteWhatsAppAccount removes one account.
func (h *Handlers) DeleteWhatsAppAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWhatsAppAccount(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Message templates ---

// ListTemplates returns all templates of the tenant.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// SaveTemplate creates a message template.
func (h *Handlers) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SaveTemplateInput](w, r)
	if !ok {
		return
	}
	template, err := h.service.SaveTemplate(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, template)
}

// GetTemplate returns one template by ID.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := h.service.GetTemplate(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// DeleteTemplate removes one template.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTemplate(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Quick replies ---

// ListQuickReplies returns all quick replies of the tenant.
func (h *Handlers) ListQuickReplies(w http.ResponseWriter, r *http.Request) {
	quickReplies, err := h.service.ListQuickReplies(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quickReplies)
}

// SaveQuickReply creates a quick reply.
func (h *Handlers) SaveQuickReply(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SaveQuickReplyInput](w, r)
	if !ok {
		return
	}
	quickReply, err := h.service.SaveQuickReply(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quickReply)
}

// DeleteQuickReply removes one quick reply.
func (h *Handlers) DeleteQuickReply(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuickReply(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Tags ---

// ListTags returns all tags of the tenant.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// SaveTag creates a tag.
func (h *Handlers) SaveTag(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SaveTagInput](w, r)
	if !ok {
		return
	}
	tag, err := h.service.SaveTag(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// DeleteTag removes one tag.
func (h *Handlers) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTag(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Contacts ---

// ListContacts returns a page of contacts.
func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.ListContacts(r.Context(),
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// SaveContact creates a contact.
func (h *Handlers) SaveContact(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.SaveContactInput](w, r)
	if !ok {
		return
	}
	contact, err := h.service.SaveContact(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// GetContact returns one contact by ID.
func (h *Handlers) GetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.service.GetContact(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}
