package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

const (
	testTenantIDMessage = "tenant-message-test-123"
)

func newTestMessageRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	logger.Log = zaptest.NewLogger(t).Named("test")

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	})
	assert.NoError(t, err)

	repo := &PostgresRepo{db: gormDB}
	return repo, mock
}

func contextWithMessageTenant() context.Context {
	return tenant.WithCompanyID(context.Background(), testTenantIDMessage)
}

var messageCols = []string{
	"id", "message_id", "conversation_id", "company_id", "flow", "message_type",
	"content", "wa_message_id", "status", "payload", "created_at", "updated_at",
}

// --- Message Repository Tests ---

func TestPostgresRepo_RecordOutbound(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	message := model.Message{
		MessageID:      "msg-out-1",
		ConversationID: "conv-1",
		CompanyID:      testTenantIDMessage,
		Flow:           model.MessageFlowOutgoing,
		Type:           model.MessageTypeText,
		Content:        "hello there",
		WaMessageID:    "wamid.ABC123",
		Status:         model.MessageStatusSent,
		Payload:        datatypes.JSON(`{"to":"+628111"}`),
	}

	mock.ExpectBegin()

	insertQuery := `INSERT INTO "messages" ("message_id","conversation_id","company_id","flow","message_type","content","wa_message_id","status","payload","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			message.MessageID, message.ConversationID, message.CompanyID, message.Flow,
			message.Type, message.Content, message.WaMessageID, message.Status,
			message.Payload, AnyTime{}, AnyTime{},
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	convQuery := `UPDATE "conversations" SET "last_message"=$1,"last_message_at"=$2,"status"=$3,"updated_at"=$4 WHERE conversation_id = $5 AND company_id = $6`
	mock.ExpectExec(convQuery).
		WithArgs(message.Content, AnyTime{}, model.ConversationStatusOpen, AnyTime{}, message.ConversationID, testTenantIDMessage).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := repo.RecordOutbound(ctx, message)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_RecordOutbound_ConversationMissing(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	message := model.Message{
		MessageID:      "msg-out-orphan",
		ConversationID: "conv-missing",
		CompanyID:      testTenantIDMessage,
		Flow:           model.MessageFlowOutgoing,
		Type:           model.MessageTypeText,
		Content:        "lost",
		WaMessageID:    "wamid.DEF456",
		Status:         model.MessageStatusSent,
	}

	mock.ExpectBegin()

	insertQuery := `INSERT INTO "messages" ("message_id","conversation_id","company_id","flow","message_type","content","wa_message_id","status","payload","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			message.MessageID, message.ConversationID, message.CompanyID, message.Flow,
			message.Type, message.Content, message.WaMessageID, message.Status,
			message.Payload, AnyTime{}, AnyTime{},
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	convQuery := `UPDATE "conversations" SET "last_message"=$1,"last_message_at"=$2,"status"=$3,"updated_at"=$4 WHERE conversation_id = $5 AND company_id = $6`
	mock.ExpectExec(convQuery).
		WithArgs(message.Content, AnyTime{}, model.ConversationStatusOpen, AnyTime{}, message.ConversationID, testTenantIDMessage).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectRollback()

	err := repo.RecordOutbound(ctx, message)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateMessageStatus_Forward(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	waMessageID := "wamid.FWD789"
	internalID := int64(11)

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "messages" WHERE wa_message_id = $1 AND company_id = $2 ORDER BY "messages"."id" LIMIT $3 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(waMessageID, testTenantIDMessage, 1).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(internalID, "msg-1", "conv-1", testTenantIDMessage, model.MessageFlowOutgoing,
				model.MessageTypeText, "hi", waMessageID, model.MessageStatusSent, `{}`, time.Now(), time.Now()))

	updateQuery := `UPDATE "messages" SET "status"=$1,"updated_at"=$2 WHERE id = $3`
	mock.ExpectExec(updateQuery).
		WithArgs(model.MessageStatusDelivered, AnyTime{}, internalID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := repo.UpdateMessageStatus(ctx, waMessageID, model.MessageStatusDelivered)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateMessageStatus_Regressive(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	waMessageID := "wamid.BACK321"
	internalID := int64(12)

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "messages" WHERE wa_message_id = $1 AND company_id = $2 ORDER BY "messages"."id" LIMIT $3 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(waMessageID, testTenantIDMessage, 1).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(internalID, "msg-2", "conv-1", testTenantIDMessage, model.MessageFlowOutgoing,
				model.MessageTypeText, "hi", waMessageID, model.MessageStatusRead, `{}`, time.Now(), time.Now()))

	mock.ExpectRollback()

	err := repo.UpdateMessageStatus(ctx, waMessageID, model.MessageStatusDelivered)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateMessageStatus_UnknownReceipt(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	waMessageID := "wamid.UNKNOWN"

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "messages" WHERE wa_message_id = $1 AND company_id = $2 ORDER BY "messages"."id" LIMIT $3 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(waMessageID, testTenantIDMessage, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectRollback()

	err := repo.UpdateMessageStatus(ctx, waMessageID, model.MessageStatusDelivered)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SaveMessage_TenantMismatch(t *testing.T) {
	repo, mock := newTestMessageRepo(t)
	ctx := contextWithMessageTenant()

	message := model.Message{
		MessageID:      "msg-cross-tenant",
		ConversationID: "conv-1",
		CompanyID:      "other-tenant",
	}

	err := repo.SaveMessage(ctx, message)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}
