package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/dispatch"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/forms"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/message"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/mocks"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/web"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
)

const (
	testInstance = "instance-1"
	testToken    = "token-1"
	testClient   = "client-1"
	legacyPhone  = "5511999990000"
)

type sentText struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// zapiServer emulates the send-text and status endpoints of one Z-API instance.
type zapiServer struct {
	mu        sync.Mutex
	sent      []sentText
	failing   map[string]bool
	connected bool
}

func newZAPIServer(t *testing.T, failing ...string) (*httptest.Server, *zapiServer) {
	t.Helper()

	fake := &zapiServer{failing: map[string]bool{}, connected: true}
	for _, phone := range failing {
		fake.failing[phone] = true
	}

	prefix := "/instances/" + testInstance + "/token/" + testToken + "/"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Token") != testClient {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case prefix + "send-text":
			var msg sentText
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				w.WriteHeader(http.StatusBadRequest)

				return
			}

			fake.mu.Lock()
			fake.sent = append(fake.sent, msg)
			fail := fake.failing[msg.Phone]
			fake.mu.Unlock()

			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid phone"}`))

				return
			}

			_, _ = w.Write([]byte(`{"zaapId":"z-1","messageId":"m-1"}`))
		case prefix + "status":
			fake.mu.Lock()
			connected := fake.connected
			fake.mu.Unlock()

			_ = json.NewEncoder(w).Encode(map[string]any{"connected": connected, "session": connected})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return server, fake
}

func (z *zapiServer) messages() []sentText {
	z.mu.Lock()
	defer z.mu.Unlock()

	return append([]sentText(nil), z.sent...)
}

type testApp struct {
	app   *fiber.App
	store *mocks.MockPersistence
	zapi  *zapiServer
}

func setupTestApp(t *testing.T, credentials bool, failing ...string) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, fake := newZAPIServer(t, failing...)

	cfg := zapi.Config{BaseURL: server.URL}
	if credentials {
		cfg.InstanceID = testInstance
		cfg.InstanceToken = testToken
		cfg.ClientToken = testClient
	}

	client := zapi.New(cfg)
	store := &mocks.MockPersistence{}
	registry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(registry)

	handlers := web.NewHandlers(web.Config{
		Resolver:   forms.NewProvider(store, logger, forms.WithLegacyRecipients(legacyPhone)),
		Dispatcher: dispatch.New(client, logger, dispatch.WithMetrics(relayMetrics)),
		Formatter: &message.Formatter{
			Location: time.UTC,
			Now:      func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) },
		},
		Provider:           client,
		Store:              store,
		Metrics:            relayMetrics,
		MissingCredentials: cfg.Missing,
		Version:            "test",
	}, logger)

	api := NewAPI(logger, handlers, registry, func() bool { return len(cfg.Missing()) == 0 })

	return &testApp{app: api.App(), store: store, zapi: fake}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func postJSON(t *testing.T, app *fiber.App, path, payload string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestAPI_RootEndpoint(t *testing.T) {
	ta := setupTestApp(t, true)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, web.ServiceName, body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestAPI_HealthCheck(t *testing.T) {
	ta := setupTestApp(t, true)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_Readiness(t *testing.T) {
	t.Run("ready with credentials", func(t *testing.T) {
		ta := setupTestApp(t, true)

		resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not ready without credentials", func(t *testing.T) {
		ta := setupTestApp(t, false)

		resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestAPI_Health(t *testing.T) {
	ta := setupTestApp(t, true)
	ta.store.On("HealthCheck", mock.Anything).Return(nil)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", checks["configuration"])
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "connected", checks["provider"])

	details, ok := body["zapiDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, details["connected"])
}

func TestAPI_Webhook_LegacyForm(t *testing.T) {
	ta := setupTestApp(t, true)
	ta.store.On("FormByID", mock.Anything, models.LegacyFormID).Return(nil, persistence.ErrFormNotFound)

	resp := postJSON(t, ta.app, "/webhook/elementor",
		`{"fields":{"name":{"value":"Ana"},"email":{"value":"ana@example.com"}}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "elementor", body["form"])
	assert.Equal(t, "Mensagens enviadas: 1 sucesso, 0 falhas", body["message"])

	sent := ta.zapi.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, legacyPhone, sent[0].Phone)
	assert.Contains(t, sent[0].Message, "*Nome:* Ana")
	assert.Contains(t, sent[0].Message, "*E-mail:* ana@example.com")
	assert.True(t, strings.HasPrefix(sent[0].Message, message.Header))
}

func TestAPI_Webhook_URLEncodedBody(t *testing.T) {
	ta := setupTestApp(t, true)
	ta.store.On("FormByID", mock.Anything, models.LegacyFormID).Return(nil, persistence.ErrFormNotFound)

	req := httptest.NewRequest(http.MethodPost, "/webhook/elementor",
		strings.NewReader("fields%5Bname%5D%5Bvalue%5D=Ana&fields%5Bempresa%5D%5Bvalue%5D=Acme"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sent := ta.zapi.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message, "*Nome:* Ana")
	assert.Contains(t, sent[0].Message, "*Empresa:* Acme")
}

func TestAPI_Webhook_StoredFormPartialFailure(t *testing.T) {
	ta := setupTestApp(t, true, "5511000000002")

	form := &models.Form{
		ID:   "contato",
		Name: "Contato",
		Fields: []models.Field{
			{FieldID: "field_a", Label: "Nome", Order: 0},
			{FieldID: "field_b", Label: "Cidade", Order: 1},
		},
		Recipients: []models.Recipient{
			{Phone: "5511000000001"},
			{Phone: "5511000000002"},
		},
	}
	ta.store.On("FormByID", mock.Anything, "contato").Return(form, nil)

	resp := postJSON(t, ta.app, "/webhook/contato", `{"field_a":"Ana","field_b":"Recife","ignored":"x"}`)

	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Mensagens enviadas: 1 sucesso, 1 falhas", body["message"])

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)

	first, _ := results[0].(map[string]any)
	second, _ := results[1].(map[string]any)
	assert.Equal(t, "5511000000001", first["phone"])
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "5511000000002", second["phone"])
	assert.Equal(t, false, second["success"])
	assert.NotEmpty(t, second["error"])

	sent := ta.zapi.messages()
	require.Len(t, sent, 2)

	for _, msg := range sent {
		assert.Equal(t, message.Header+"\nData/Hora: 03/02/2026, 10:00:00\n\n*Nome:* Ana\n*Cidade:* Recife", msg.Message)
	}
}

func TestAPI_Webhook_Errors(t *testing.T) {
	tests := []struct {
		name        string
		credentials bool
		formID      string
		payload     string
		setup       func(store *mocks.MockPersistence)
		wantStatus  int
		wantError   string
	}{
		{
			name:        "unknown form",
			credentials: true,
			formID:      "missing",
			payload:     `{"name":"Ana"}`,
			setup: func(store *mocks.MockPersistence) {
				store.On("FormByID", mock.Anything, "missing").Return(nil, persistence.ErrFormNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantError:  "Form not found",
		},
		{
			name:        "no recognized fields",
			credentials: true,
			formID:      models.LegacyFormID,
			payload:     `{"unknown":"value"}`,
			setup: func(store *mocks.MockPersistence) {
				store.On("FormByID", mock.Anything, models.LegacyFormID).Return(nil, persistence.ErrFormNotFound)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid form data",
		},
		{
			name:        "missing provider credentials",
			credentials: false,
			formID:      models.LegacyFormID,
			payload:     `{"name":"Ana"}`,
			setup:       func(*mocks.MockPersistence) {},
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupTestApp(t, tt.credentials)
			tt.setup(ta.store)

			resp := postJSON(t, ta.app, "/webhook/"+tt.formID, tt.payload)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.Empty(t, ta.zapi.messages())
		})
	}
}

func TestAPI_Webhook_MissingCredentialsListed(t *testing.T) {
	ta := setupTestApp(t, false)

	resp := postJSON(t, ta.app, "/webhook/elementor", `{"name":"Ana"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.ElementsMatch(t,
		[]any{"ZAPI_INSTANCE_ID", "ZAPI_INSTANCE_TOKEN", "ZAPI_CLIENT_TOKEN"},
		body["missing"])
	ta.store.AssertNotCalled(t, "FormByID", mock.Anything, mock.Anything)
}

func TestAPI_CORS(t *testing.T) {
	ta := setupTestApp(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/webhook/elementor", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ta.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_Metrics(t *testing.T) {
	ta := setupTestApp(t, true)
	ta.store.On("FormByID", mock.Anything, models.LegacyFormID).Return(nil, persistence.ErrFormNotFound)

	resp := postJSON(t, ta.app, "/webhook/elementor", `{"name":"Ana"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "relay_webhook_requests_total")
	assert.Contains(t, string(body), "relay_dispatch_sends_total")
}

func TestAPI_UnknownRoute(t *testing.T) {
	ta := setupTestApp(t, true)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "not_found", body["type"])
}
