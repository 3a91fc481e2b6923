package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-engine/internal/config"
	"workorder-engine/internal/domain"
	"workorder-engine/internal/events"
	"workorder-engine/internal/extract"
	"workorder-engine/internal/processor"
	"workorder-engine/internal/store"
)

type testEnv struct {
	handler http.Handler
	cfg     *config.Store
	logs    *store.LogStore
	proc    *processor.Processor
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfgStore := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
	logs := store.NewLogStore(db)
	hub := events.NewHub()
	reg := prometheus.NewRegistry()
	ex := extract.New(extract.DefaultRules(), zerolog.Nop())

	proc := processor.New(processor.Options{
		Config:  cfgStore,
		Logs:    logs,
		Handler: ex,
		Hub:     hub,
		Metrics: processor.NewMetrics(reg),
		Log:     zerolog.Nop(),
	})
	t.Cleanup(func() { proc.Stop() })

	h := NewRouter(Deps{
		Config:    cfgStore,
		DB:        db,
		Logs:      logs,
		Processor: proc,
		Extractor: ex,
		Hub:       hub,
		Gatherer:  reg,
		Log:       zerolog.Nop(),
	})
	return &testEnv{handler: h, cfg: cfgStore, logs: logs, proc: proc}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestRootAndHealth(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"running","service":"Email Parser API"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "not_found", body["code"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}

func TestWorkOrders(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/work-orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.WorkOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestProcessEmailLogsSuccess(t *testing.T) {
	env := setupTestAPI(t)

	body, _ := json.Marshal(map[string]any{
		"email_content": "Subject: Urgent: no heat in lobby\r\nFrom: Front Desk <desk@example.com>\r\n\r\nThe furnace stopped overnight.\r\n",
		"attachments":   []string{"photo.jpg"},
	})
	rec := env.do(t, http.MethodPost, "/process-email", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp processEmailResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Email processed successfully", resp.Message)
	assert.Equal(t, domain.PriorityHigh, resp.ExtractedData.Priority)
	assert.Equal(t, "HVAC", resp.ExtractedData.Trade)
	assert.Equal(t, "Front Desk", resp.ExtractedData.Customer)

	got, err := env.logs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].ItemID, "manual_"))
	assert.Equal(t, store.OutcomeSuccess, got[0].Outcome)
}

func TestProcessEmailFailures(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodPost, "/process-email", `{"email_content":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/process-email", `{"email_content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/process-email", `{"email_content":"Subject: blank\r\n\r\n"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "empty_content", body["code"])
	assert.Contains(t, body["message"], "Error processing email")

	got, err := env.logs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, store.OutcomeError, got[0].Outcome)
}

func TestConfigGetReturnsDocument(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	for _, k := range config.RequiredKeys {
		assert.Contains(t, body, k)
	}
}

func TestConfigPost(t *testing.T) {
	env := setupTestAPI(t)

	cfg := config.Default()
	cfg.ModelPath = "models/local"
	cfg.Extra = map[string]json.RawMessage{"ui": json.RawMessage(`{"theme":"dark"}`)}
	b, err := json.Marshal(cfg)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/config", string(b))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"success","message":"Configuration updated successfully"}`, rec.Body.String())

	saved, err := env.cfg.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, saved)
}

func TestConfigPostMissingSection(t *testing.T) {
	env := setupTestAPI(t)

	var doc map[string]any
	b, _ := json.Marshal(config.Default())
	require.NoError(t, json.Unmarshal(b, &doc))
	delete(doc, "crm")
	b, _ = json.Marshal(doc)

	rec := env.do(t, http.MethodPost, "/config", string(b))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "missing_sections", body["code"])
	assert.Contains(t, body["message"], "crm")

	rec = env.do(t, http.MethodPost, "/config", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigPostInvalid(t *testing.T) {
	env := setupTestAPI(t)

	cfg := config.Default()
	cfg.IMAP.Port = 0
	b, _ := json.Marshal(cfg)

	rec := env.do(t, http.MethodPost, "/config", string(b))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_config", body["code"])
	assert.NotEmpty(t, body["errors"])

	// the stored document is untouched
	saved, err := env.cfg.Load()
	require.NoError(t, err)
	assert.Equal(t, 993, saved.IMAP.Port)
}

func TestConfigValidate(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/config/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, env.cfg.AbsPath(), body["path"])
}

func TestProcessorLifecycle(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/processor-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"running":false,"last_check":null,"emails_processed":0,"logs":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/start-processor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Email processor started"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/start-processor", "")
	assert.JSONEq(t, `{"status":"info","message":"Email processor is already running"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/processor-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["running"])

	rec = env.do(t, http.MethodPost, "/stop-processor", "")
	assert.JSONEq(t, `{"status":"success","message":"Email processor stopped"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/stop-processor", "")
	assert.JSONEq(t, `{"status":"info","message":"Email processor is not running"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/processor-status", "")
	assert.Equal(t, false, decodeBody(t, rec)["running"])
}

func TestStartProcessorStartupError(t *testing.T) {
	env := setupTestAPI(t)

	cfg := config.Default()
	cfg.Processor.Source = "carrier-pigeon"
	require.NoError(t, env.cfg.Save(cfg))

	rec := env.do(t, http.MethodPost, "/start-processor", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "processor_startup", body["code"])
	assert.Contains(t, body["message"], "carrier-pigeon")
}

func TestChatStreamsReply(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "I'm processing your message: 'hello'."))
	assert.True(t, rec.Flushed)

	rec = env.do(t, http.MethodPost, "/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelStatus(t *testing.T) {
	env := setupTestAPI(t)

	rec := env.do(t, http.MethodGet, "/model-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["model_loaded"])
	assert.Equal(t, config.Default().ModelPath, body["model_path"])
}

func TestCheckpointIsLocalOnly(t *testing.T) {
	env := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/db/checkpoint", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/db/checkpoint", nil)
	req.RemoteAddr = "127.0.0.1:50000"
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	env := setupTestAPI(t)

	env.do(t, http.MethodPost, "/start-processor", "")
	env.do(t, http.MethodPost, "/stop-processor", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workorder_processor_running 0")
}

func TestCorsPreflight(t *testing.T) {
	env := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/config", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
