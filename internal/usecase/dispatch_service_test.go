package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
)

func seedConversationWithContact(h *testHarness) {
	h.contacts.contacts["contact-1"] = &model.Contact{
		ContactID:   "contact-1",
		CompanyID:   testCompanyID,
		PhoneNumber: "+628111222333",
		Name:        "Budi",
	}
	h.convs.conversations["conv-1"] = &model.Conversation{
		ConversationID: "conv-1",
		CompanyID:      testCompanyID,
		ContactID:      "contact-1",
		Status:         model.ConversationStatusPending,
	}
}

func seedAccount(h *testHarness) {
	h.accounts.accounts["acc-1"] = &model.WhatsAppAccount{
		AccountID:     "acc-1",
		CompanyID:     testCompanyID,
		PhoneNumberID: "1234567890",
		AccessToken:   "token",
		Active:        true,
	}
}

func TestSendMessage_Text(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)
	h.sender.waMessageID = "wamid.TEXT1"

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-1",
		Type:           model.MessageTypeText,
		Content:        "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "wamid.TEXT1", result.WaMessageID)
	assert.Equal(t, model.MessageStatusSent, result.Status)
	assert.NotEmpty(t, result.MessageID)
	assert.Equal(t, 1, h.sender.calls)
	assert.Equal(t, "+628111222333", h.sender.lastTo)

	require.Len(t, h.messages.messages, 1)
	stored := h.messages.messages[0]
	assert.Equal(t, model.MessageFlowOutgoing, stored.Flow)
	assert.Equal(t, "hello", stored.Content)
	assert.Equal(t, model.MessageStatusSent, stored.Status)

	conv := h.convs.conversations["conv-1"]
	assert.Equal(t, model.ConversationStatusOpen, conv.Status)
	assert.Equal(t, "hello", conv.LastMessage)
}

func TestSendMessage_TemplateStoresPlaceholderContent(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)
	h.sender.waMessageID = "wamid.TMPL1"

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-1",
		Type:           model.MessageTypeTemplate,
		TemplateName:   "order_update",
	})

	require.NoError(t, err)
	assert.Equal(t, "wamid.TMPL1", result.WaMessageID)
	assert.Equal(t, "order_update", h.sender.lastName)

	require.Len(t, h.messages.messages, 1)
	assert.Equal(t, "[Template: order_update]", h.messages.messages[0].Content)
	assert.Equal(t, model.MessageStatusSent, h.messages.messages[0].Status)
}

func TestSendMessage_InteractiveStoresPlaceholderContent(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)
	h.sender.waMessageID = "wamid.INT1"

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID:  "conv-1",
		Type:            model.MessageTypeInteractive,
		InteractiveType: InteractiveTypeButton,
		Interactive:     json.RawMessage(`{"type":"button","body":{"text":"pick"}}`),
	})

	require.NoError(t, err)
	assert.Equal(t, "wamid.INT1", result.WaMessageID)

	require.Len(t, h.messages.messages, 1)
	assert.Equal(t, "[Interactive: button]", h.messages.messages[0].Content)
}

func TestSendMessage_NoAccountIsUnconfiguredAndWritesNothing(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	// No account seeded.

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-1",
		Type:           model.MessageTypeText,
		Content:        "hello",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrUnconfigured)
	assert.Zero(t, h.sender.calls)
	assert.Empty(t, h.messages.messages)
	assert.Equal(t, model.ConversationStatusPending, h.convs.conversations["conv-1"].Status)
}

func TestSendMessage_ExternalFailureWritesNothing(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)
	h.sender.sendErr = fmt.Errorf("%w: status=500", apperrors.ErrExternalCall)

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-1",
		Type:           model.MessageTypeText,
		Content:        "hello",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrExternalCall)
	assert.Equal(t, 1, h.sender.calls)
	assert.Empty(t, h.messages.messages)
	assert.Equal(t, model.ConversationStatusPending, h.convs.conversations["conv-1"].Status)
}

func TestSendMessage_ConversationNotFound(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAccount(h)

	_, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-missing",
		Type:           model.MessageTypeText,
		Content:        "hello",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, h.sender.calls)
}

func TestSendMessage_ValidationRunsBeforeExternalCall(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)

	cases := []SendMessageInput{
		{ConversationID: "conv-1", Type: model.MessageTypeText},                                          // no content
		{ConversationID: "conv-1", Type: model.MessageTypeTemplate},                                      // no template name
		{ConversationID: "conv-1", Type: model.MessageTypeInteractive, InteractiveType: "carousel"},      // bad sub-type
		{ConversationID: "conv-1", Type: model.MessageTypeInteractive, InteractiveType: "button"},        // no block
		{ConversationID: "conv-1", Type: "audio", Content: "x"},                                          // unsupported type
	}
	for _, input := range cases {
		_, err := h.service.SendMessage(ctx, input)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
	assert.Zero(t, h.sender.calls)
	assert.Empty(t, h.messages.messages)
}

func TestSendMessage_PersistFailureSurfacesAfterSend(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)
	h.sender.waMessageID = "wamid.ORPHAN"
	h.messages.saveErr = errors.New("connection reset")

	result, err := h.service.SendMessage(ctx, SendMessageInput{
		ConversationID: "conv-1",
		Type:           model.MessageTypeText,
		Content:        "hello",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, h.sender.calls)
	assert.Contains(t, err.Error(), "wamid.ORPHAN")
}

func TestApplyReceipt(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)

	h.messages.messages = append(h.messages.messages, model.Message{
		MessageID:      "msg-1",
		ConversationID: "conv-1",
		CompanyID:      testCompanyID,
		WaMessageID:    "wamid.R1",
		Status:         model.MessageStatusSent,
	})

	// Forward transition applies.
	require.NoError(t, h.service.ApplyReceipt(ctx, "wamid.R1", model.MessageStatusDelivered))
	assert.Equal(t, model.MessageStatusDelivered, h.messages.messages[0].Status)

	// Stale receipt is ignored, not an error.
	require.NoError(t, h.service.ApplyReceipt(ctx, "wamid.R1", model.MessageStatusSent))
	assert.Equal(t, model.MessageStatusDelivered, h.messages.messages[0].Status)

	// Unknown message is ignored.
	require.NoError(t, h.service.ApplyReceipt(ctx, "wamid.UNKNOWN", model.MessageStatusRead))
}

func TestProcessWebhook_ResolvesTenantByPhoneNumber(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	seedAccount(h)

	h.messages.messages = append(h.messages.messages, model.Message{
		MessageID:      "msg-1",
		ConversationID: "conv-1",
		CompanyID:      testCompanyID,
		WaMessageID:    "wamid.W1",
		Status:         model.MessageStatusSent,
	})

	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"metadata": {"phone_number_id": "1234567890"},
					"statuses": [
						{"id": "wamid.W1", "status": "delivered"},
						{"id": "wamid.GHOST", "status": "read"}
					]
				}
			}]
		}]
	}`)

	require.NoError(t, h.service.ProcessWebhook(ctx, body))
	assert.Equal(t, model.MessageStatusDelivered, h.messages.messages[0].Status)
}

func TestProcessWebhook_DropsUnregisteredPhoneNumber(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedConversationWithContact(h)
	// No account seeded, so no phone number resolves.

	h.messages.messages = append(h.messages.messages, model.Message{
		MessageID:   "msg-1",
		CompanyID:   testCompanyID,
		WaMessageID: "wamid.W1",
		Status:      model.MessageStatusSent,
	})

	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"metadata": {"phone_number_id": "999"},
					"statuses": [{"id": "wamid.W1", "status": "delivered"}]
				}
			}]
		}]
	}`)

	require.NoError(t, h.service.ProcessWebhook(ctx, body))
	assert.Equal(t, model.MessageStatusSent, h.messages.messages[0].Status)
}

func TestProcessWebhook_MalformedPayload(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)

	err := h.service.ProcessWebhook(ctx, []byte(`not json`))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
