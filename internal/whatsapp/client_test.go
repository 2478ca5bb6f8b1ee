package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

var testCreds = Credentials{
	PhoneNumberID: "1234567890",
	AccessToken:   "test-token",
}

func TestClient_SendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.TEST1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	waID, err := client.SendText(context.Background(), testCreds, "+628111222333", "hello")

	require.NoError(t, err)
	assert.Equal(t, "wamid.TEST1", waID)
	assert.Equal(t, "/v20.0/1234567890/messages", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "text", gotBody["type"])
	assert.Equal(t, "+628111222333", gotBody["to"])
}

func TestClient_SendTemplate(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.TMPL1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	waID, err := client.SendTemplate(context.Background(), testCreds, "+628111222333", "order_update", "", nil)

	require.NoError(t, err)
	assert.Equal(t, "wamid.TMPL1", waID)
	assert.Equal(t, "template", gotBody["type"])

	template, ok := gotBody["template"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "order_update", template["name"])
	language, ok := template["language"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "en", language["code"])
	assert.NotContains(t, template, "components")
}

func TestClient_SendTemplateWithParams(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.TMPL2"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	waID, err := client.SendTemplate(context.Background(), testCreds, "+628111222333", "order_update", "id", []string{"Budi", "INV-42"})

	require.NoError(t, err)
	assert.Equal(t, "wamid.TMPL2", waID)

	template := gotBody["template"].(map[string]interface{})
	components, ok := template["components"].([]interface{})
	require.True(t, ok)
	require.Len(t, components, 1)
	body := components[0].(map[string]interface{})
	assert.Equal(t, "body", body["type"])
	params := body["parameters"].([]interface{})
	require.Len(t, params, 2)
	assert.Equal(t, "Budi", params[0].(map[string]interface{})["text"])
	assert.Equal(t, "INV-42", params[1].(map[string]interface{})["text"])
}

func TestClient_SendInteractive(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.INT1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	interactive := json.RawMessage(`{"type":"button","body":{"text":"pick one"}}`)
	waID, err := client.SendInteractive(context.Background(), testCreds, "+628111222333", interactive)

	require.NoError(t, err)
	assert.Equal(t, "wamid.INT1", waID)
	assert.Equal(t, "interactive", gotBody["type"])
}

func TestClient_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	waID, err := client.SendText(context.Background(), testCreds, "+628111222333", "hello")

	require.Error(t, err)
	assert.Empty(t, waID)
	assert.ErrorIs(t, err, apperrors.ErrExternalCall)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Invalid OAuth access token")
}

func TestClient_Send_MissingCredentials(t *testing.T) {
	client := NewClient("https://graph.facebook.com", "v20.0", 5*time.Second)

	waID, err := client.SendText(context.Background(), Credentials{}, "+628111222333", "hello")

	require.Error(t, err)
	assert.Empty(t, waID)
	assert.ErrorIs(t, err, apperrors.ErrUnconfigured)
}

func TestClient_Send_EmptyMessageList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v20.0", 5*time.Second)

	_, err := client.SendText(context.Background(), testCreds, "+628111222333", "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExternalCall)
}

func TestParseReceipts(t *testing.T) {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"statuses": [
						{"id": "wamid.A", "status": "delivered"},
						{"id": "wamid.B", "status": "read"},
						{"id": "wamid.C", "status": "warmup"}
					]
				}
			}]
		}]
	}`)

	receipts, err := ParseReceipts(body)

	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "wamid.A", receipts[0].WaMessageID)
	assert.Equal(t, "delivered", receipts[0].Status)
	assert.Equal(t, "wamid.B", receipts[1].WaMessageID)
	assert.Equal(t, "read", receipts[1].Status)
}

func TestParseReceipts_Malformed(t *testing.T) {
	_, err := ParseReceipts([]byte(`not json`))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
