package usecase

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/whatsapp"
)

// In-memory fakes for the repository interfaces. Only the behavior the
// services exercise is implemented; everything else returns NotFound.

type fakeTenantRepo struct {
	tenants map[string]*model.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: map[string]*model.Tenant{}}
}

func (f *fakeTenantRepo) FindByCompanyID(_ context.Context, companyID string) (*model.Tenant, error) {
	if t, ok := f.tenants[companyID]; ok {
		return t, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeTenantRepo) EnsureTenant(_ context.Context, companyID string) (*model.Tenant, error) {
	if t, ok := f.tenants[companyID]; ok {
		return t, nil
	}
	t := &model.Tenant{CompanyID: companyID}
	f.tenants[companyID] = t
	return t, nil
}

type fakeAgentRepo struct {
	agents      map[string]*model.Agent
	updateErr   error
	setDefErr   error
	lastConfig  datatypes.JSON
	configCalls int
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: map[string]*model.Agent{}}
}

func (f *fakeAgentRepo) Create(_ context.Context, agent model.Agent) error {
	if _, ok := f.agents[agent.AgentID]; ok {
		return apperrors.ErrDuplicate
	}
	copied := agent
	f.agents[agent.AgentID] = &copied
	return nil
}

func (f *fakeAgentRepo) Update(_ context.Context, agent model.Agent) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.agents[agent.AgentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing.Name = agent.Name
	existing.Config = agent.Config
	return nil
}

func (f *fakeAgentRepo) UpdateConfig(_ context.Context, agentID string, config datatypes.JSON) error {
	existing, ok := f.agents[agentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing.Config = config
	f.lastConfig = config
	f.configCalls++
	return nil
}

func (f *fakeAgentRepo) SetDefault(_ context.Context, agentID string) error {
	if f.setDefErr != nil {
		return f.setDefErr
	}
	target, ok := f.agents[agentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, a := range f.agents {
		if a.CompanyID == target.CompanyID {
			a.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func (f *fakeAgentRepo) Delete(_ context.Context, agentID string) error {
	if _, ok := f.agents[agentID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.agents, agentID)
	return nil
}

func (f *fakeAgentRepo) FindByAgentID(_ context.Context, agentID string) (*model.Agent, error) {
	if a, ok := f.agents[agentID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAgentRepo) FindByCompanyID(_ context.Context, companyID string) ([]model.Agent, error) {
	var out []model.Agent
	for _, a := range f.agents {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAgentRepo) FindDefault(_ context.Context) (*model.Agent, error) {
	for _, a := range f.agents {
		if a.IsDefault {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type fakeConversationRepo struct {
	conversations map[string]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: map[string]*model.Conversation{}}
}

func (f *fakeConversationRepo) Save(_ context.Context, conversation model.Conversation) error {
	copied := conversation
	f.conversations[conversation.ConversationID] = &copied
	return nil
}

func (f *fakeConversationRepo) FindByConversationID(_ context.Context, conversationID string) (*model.Conversation, error) {
	if c, ok := f.conversations[conversationID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeConversationRepo) FindByCompanyID(_ context.Context, status string, _, _ int) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.conversations {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) UpdateStatus(_ context.Context, conversationID, status string) error {
	c, ok := f.conversations[conversationID]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Status = status
	return nil
}

type fakeMessageRepo struct {
	messages   []model.Message
	saveErr    error
	statusErrs map[string]error
	convRepo   *fakeConversationRepo
}

func newFakeMessageRepo(convRepo *fakeConversationRepo) *fakeMessageRepo {
	return &fakeMessageRepo{convRepo: convRepo, statusErrs: map[string]error{}}
}

func (f *fakeMessageRepo) Save(_ context.Context, message model.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepo) RecordOutbound(ctx context.Context, message model.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.convRepo != nil {
		c, ok := f.convRepo.conversations[message.ConversationID]
		if !ok {
			return apperrors.ErrNotFound
		}
		c.Status = model.ConversationStatusOpen
		c.LastMessage = message.Content
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepo) FindByMessageID(_ context.Context, messageID string) (*model.Message, error) {
	for i := range f.messages {
		if f.messages[i].MessageID == messageID {
			copied := f.messages[i]
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeMessageRepo) FindByWaMessageID(_ context.Context, waMessageID string) (*model.Message, error) {
	for i := range f.messages {
		if f.messages[i].WaMessageID == waMessageID {
			copied := f.messages[i]
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeMessageRepo) FindByConversationID(_ context.Context, conversationID string, _, _ int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) UpdateStatus(_ context.Context, waMessageID, status string) error {
	if err, ok := f.statusErrs[waMessageID]; ok {
		return err
	}
	for i := range f.messages {
		if f.messages[i].WaMessageID == waMessageID {
			if !model.CanTransitionStatus(f.messages[i].Status, status) {
				return apperrors.ErrConflict
			}
			f.messages[i].Status = status
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakeContactRepo struct {
	contacts map[string]*model.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[string]*model.Contact{}}
}

func (f *fakeContactRepo) Save(_ context.Context, contact model.Contact) error {
	copied := contact
	f.contacts[contact.ContactID] = &copied
	return nil
}

func (f *fakeContactRepo) FindByContactID(_ context.Context, contactID string) (*model.Contact, error) {
	if c, ok := f.contacts[contactID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeContactRepo) FindByCompanyID(_ context.Context, _, _ int) ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range f.contacts {
		out = append(out, *c)
	}
	return out, nil
}

type fakeAccountRepo struct {
	accounts map[string]*model.WhatsAppAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*model.WhatsAppAccount{}}
}

func (f *fakeAccountRepo) Save(_ context.Context, account model.WhatsAppAccount) error {
	copied := account
	f.accounts[account.AccountID] = &copied
	return nil
}

func (f *fakeAccountRepo) FindByAccountID(_ context.Context, accountID string) (*model.WhatsAppAccount, error) {
	if a, ok := f.accounts[accountID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountRepo) FindByCompanyID(_ context.Context) ([]model.WhatsAppAccount, error) {
	var out []model.WhatsAppAccount
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAccountRepo) FindActive(_ context.Context) (*model.WhatsAppAccount, error) {
	for _, a := range f.accounts {
		if a.Active {
			copied := *a
			return &copied, nil
		}
	}
	for _, a := range f.accounts {
		copied := *a
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountRepo) FindByPhoneNumberID(_ context.Context, phoneNumberID string) (*model.WhatsAppAccount, error) {
	for _, a := range f.accounts {
		if a.PhoneNumberID == phoneNumberID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountRepo) Delete(_ context.Context, accountID string) error {
	if _, ok := f.accounts[accountID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.accounts, accountID)
	return nil
}

type fakeTemplateRepo struct {
	templates map[string]*model.MessageTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[string]*model.MessageTemplate{}}
}

func (f *fakeTemplateRepo) Save(_ context.Context, template model.MessageTemplate) error {
	copied := template
	f.templates[template.TemplateID] = &copied
	return nil
}

func (f *fakeTemplateRepo) FindByTemplateID(_ context.Context, templateID string) (*model.MessageTemplate, error) {
	if t, ok := f.templates[templateID]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeTemplateRepo) FindByName(_ context.Context, name string) (*model.MessageTemplate, error) {
	for _, t := range f.templates {
		if t.Name == name {
			copied := *t
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeTemplateRepo) FindByCompanyID(_ context.Context) ([]model.MessageTemplate, error) {
	var out []model.MessageTemplate
	for _, t := range f.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTemplateRepo) Delete(_ context.Context, templateID string) error {
	if _, ok := f.templates[templateID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.templates, templateID)
	return nil
}

type fakeQuickReplyRepo struct {
	quickReplies map[string]*model.QuickReply
}

func newFakeQuickReplyRepo() *fakeQuickReplyRepo {
	return &fakeQuickReplyRepo{quickReplies: map[string]*model.QuickReply{}}
}

func (f *fakeQuickReplyRepo) Save(_ context.Context, quickReply model.QuickReply) error {
	copied := quickReply
	f.quickReplies[quickReply.QuickReplyID] = &copied
	return nil
}

func (f *fakeQuickReplyRepo) FindByCompanyID(_ context.Context) ([]model.QuickReply, error) {
	var out []model.QuickReply
	for _, q := range f.quickReplies {
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeQuickReplyRepo) Delete(_ context.Context, quickReplyID string) error {
	if _, ok := f.quickReplies[quickReplyID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.quickReplies, quickReplyID)
	return nil
}

type fakeTagRepo struct {
	tags map[string]*model.Tag
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: map[string]*model.Tag{}}
}

func (f *fakeTagRepo) Save(_ context.Context, tag model.Tag) error {
	copied := tag
	f.tags[tag.TagID] = &copied
	return nil
}

func (f *fakeTagRepo) FindByCompanyID(_ context.Context) ([]model.Tag, error) {
	var out []model.Tag
	for _, t := range f.tags {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTagRepo) Delete(_ context.Context, tagID string) error {
	if _, ok := f.tags[tagID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.tags, tagID)
	return nil
}

// fakeWaSender records calls and returns canned IDs or errors.
type fakeWaSender struct {
	sendErr     error
	waMessageID string
	calls       int
	lastTo      string
	lastBody    string
	lastName    string
	lastLang    string
	lastParams  []string
	lastBlock   json.RawMessage
}

func (f *fakeWaSender) SendText(_ context.Context, _ whatsapp.Credentials, to, body string) (string, error) {
	f.calls++
	f.lastTo = to
	f.lastBody = body
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.waMessageID, nil
}

func (f *fakeWaSender) SendTemplate(_ context.Context, _ whatsapp.Credentials, to, name, language string, params []string) (string, error) {
	f.calls++
	f.lastTo = to
	f.lastName = name
	f.lastLang = language
	f.lastParams = params
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.waMessageID, nil
}

func (f *fakeWaSender) SendInteractive(_ context.Context, _ whatsapp.Credentials, to string, interactive json.RawMessage) (string, error) {
	f.calls++
	f.lastTo = to
	f.lastBlock = interactive
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.waMessageID, nil
}

// testHarness bundles a service with all its fakes.
type testHarness struct {
	service  *CRMService
	tenants  *fakeTenantRepo
	agents   *fakeAgentRepo
	convs    *fakeConversationRepo
	messages *fakeMessageRepo
	contacts *fakeContactRepo
	accounts *fakeAccountRepo
	tpls     *fakeTemplateRepo
	quick    *fakeQuickReplyRepo
	tags     *fakeTagRepo
	sender   *fakeWaSender
}

func newTestHarness() *testHarness {
	tenants := newFakeTenantRepo()
	agents := newFakeAgentRepo()
	convs := newFakeConversationRepo()
	messages := newFakeMessageRepo(convs)
	contacts := newFakeContactRepo()
	accounts := newFakeAccountRepo()
	tpls := newFakeTemplateRepo()
	quick := newFakeQuickReplyRepo()
	tags := newFakeTagRepo()
	sender := &fakeWaSender{waMessageID: "wamid.FAKE"}

	service := NewCRMService(tenants, agents, convs, messages, contacts, accounts, tpls, quick, tags, sender)
	return &testHarness{
		service:  service,
		tenants:  tenants,
		agents:   agents,
		convs:    convs,
		messages: messages,
		contacts: contacts,
		accounts: accounts,
		tpls:     tpls,
		quick:    quick,
		tags:     tags,
		sender:   sender,
	}
}
