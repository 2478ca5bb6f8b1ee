package httpapi

import (
	"github.com/go-chi/chi/v5"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/session"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/usecase"
)

// Handlers carries the dependencies the HTTP handlers need.
type Handlers struct {
	service *usecase.CRMService
	// verifyToken is the shared secret for webhook subscription verification.
	verifyToken string
}

// NewHandlers creates the handler set.
func NewHandlers(service *usecase.CRMService, verifyToken string) *Handlers {
	return &Handlers{service: service, verifyToken: verifyToken}
}

// NewRouter builds the full router: webhooks outside session auth (the Cloud
// API authenticates with the verify token, not a session), everything else
// behind it.
func NewRouter(h *Handlers, verifier session.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(RequestLogger)

	// Webhooks (outside auth, verify-token checked in the handler)
	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/whatsapp", h.VerifyWebhook)
		r.Post("/whatsapp", h.ReceiveWebhook)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionAuth(verifier))

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Put("/agents/{id}", h.UpdateAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)
		r.Put("/agents/{id}/default", h.SetDefaultAgent)
		r.Get("/agents/{id}/config/{section}", h.GetAgentConfigSection)
		r.Put("/agents/{id}/config/{section}", h.SetAgentConfigSection)

		// Legacy tenant-level config (default agent, fetch-or-create)
		r.Get("/agent/config", h.GetTenantConfig)
		r.Post("/agent/config", h.SetTenantConfig)

		// Outbound dispatch
		r.Post("/messages/send", h.SendMessage)

		// Conversations
		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{id}", h.GetConversation)
		r.Get("/conversations/{id}/messages", h.ListMessages)
		r.Put("/conversations/{id}/status", h.UpdateConversationStatus)

		// WhatsApp account settings
		r.Get("/settings/whatsapp", h.ListWhatsAppAccounts)
		r.Post("/settings/whatsapp", h.SaveWhatsAppAccount)
		r.Get("/settings/whatsapp/{id}", h.GetWhatsAppAccount)
		r.Delete("/settings/whatsapp/{id}", h.DeleteWhatsAppAccount)

		// Message templates
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates", h.SaveTemplate)
		r.Get("/templates/{id}", h.GetTemplate)
		r.Delete("/templates/{id}", h.DeleteTemplate)

		// Quick replies and tags
		r.Get("/quick-replies", h.ListQuickReplies)
		r.Post("/quick-replies", h.SaveQuickReply)
		r.Delete("/quick-replies/{id}", h.DeleteQuickReply)
		r.Get("/tags", h.ListTags)
		r.Post("/tags", h.SaveTag)
		r.Delete("/tags/{id}", h.DeleteTag)

		// Contacts
		r.Get("/contacts", h.ListContacts)
		r.Post("/contacts", h.SaveContact)
		r.Get("/contacts/{id}", h.GetContact)
	})

	return r
}
