package usecase

import (
	"context"
	"encoding/json"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/whatsapp"
)

// WaSender is the slice of the Cloud API client the dispatcher needs.
type WaSender interface {
	SendText(ctx context.Context, creds whatsapp.Credentials, to, body string) (string, error)
	SendTemplate(ctx context.Context, creds whatsapp.Credentials, to, name, language string, params []string) (string, error)
	SendInteractive(ctx context.Context, creds whatsapp.Credentials, to string, interactive json.RawMessage) (string, error)
}

// CRMService bundles the tenant-scoped repositories and the WhatsApp client
// behind the operations the HTTP layer exposes.
type CRMService struct {
	tenantRepo       storage.TenantRepo
	agentRepo        storage.AgentRepo
	conversationRepo storage.ConversationRepo
	messageRepo      storage.MessageRepo
	contactRepo      storage.ContactRepo
	accountRepo      storage.AccountRepo
	templateRepo     storage.TemplateRepo
	quickReplyRepo   storage.QuickReplyRepo
	tagRepo          storage.TagRepo
	waSender         WaSender
}

// NewCRMService creates the service with its dependencies.
func NewCRMService(
	tenantRepo storage.TenantRepo,
	agentRepo storage.AgentRepo,
	conversationRepo storage.ConversationRepo,
	messageRepo storage.MessageRepo,
	contactRepo storage.ContactRepo,
	accountRepo storage.AccountRepo,
	templateRepo storage.TemplateRepo,
	quickReplyRepo storage.QuickReplyRepo,
	tagRepo storage.TagRepo,
	waSender WaSender,
) *CRMService {
	return &CRMService{
		tenantRepo:       tenantRepo,
		agentRepo:        agentRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		contactRepo:      contactRepo,
		accountRepo:      accountRepo,
		templateRepo:     templateRepo,
		quickReplyRepo:   quickReplyRepo,
		tagRepo:          tagRepo,
		waSender:         waSender,
	}
}
