package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leoforge/go-leodocs/internal/config"
	"github.com/leoforge/go-leodocs/internal/docxtest"
	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Templates: config.TemplatesConfig{Dir: "templates"},
	}
}

func setupTestServer(t *testing.T, cfg *config.Config) (*Server, *bytes.Buffer) {
	t.Helper()
	store := leodocs.NewMemoryStore()
	store.Put("minutes.docx", docxtest.New(
		docxtest.Paragraph("{clubName}")+docxtest.Paragraph("{%logo}"),
	).Bytes())
	store.Put("minutes_virtual.docx", docxtest.New(docxtest.Paragraph("Online: {clubName}")).Bytes())
	store.Put("broken.docx", docxtest.New(docxtest.Paragraph("{#agendaItems}{item}")).Bytes())

	var logs bytes.Buffer
	logger := leodocs.NewLogger(&logs, leodocs.LogInfo)
	registry := prometheus.NewRegistry()
	metrics, err := leodocs.NewPrometheusMetrics(registry)
	require.NoError(t, err)

	router := leodocs.NewRouter(map[string]string{"virtual": "minutes_virtual.docx"}, "minutes.docx")
	engine := leodocs.New(store, leodocs.WithLogger(logger), leodocs.WithRouter(router), leodocs.WithMetrics(metrics))
	t.Cleanup(func() { engine.Close() })

	return New(engine, cfg, logger, registry), &logs
}

func postRender(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/render", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleRender(t *testing.T) {
	srv, logs := setupTestServer(t, testConfig())

	w := postRender(t, srv, map[string]interface{}{
		"template": "minutes.docx",
		"data":     map[string]interface{}{"clubName": "Example Leos", "logo": docxtest.PNG(2, 2)},
		"filename": map[string]interface{}{"prefix": "Minutes", "month": "May", "year": 2026},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, DocxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=Minutes_May_2026.docx`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "minutes.docx", w.Header().Get("X-Template"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	docx := w.Body.Bytes()
	assert.Equal(t, "Example Leos", docxtest.Paragraphs(t, docx, "word/document.xml")[0])
	assert.Contains(t, docxtest.Parts(t, docx), "word/media/image1.png")
	assert.Contains(t, logs.String(), "Request served")
}

func TestHandleRenderByVariant(t *testing.T) {
	srv, _ := setupTestServer(t, testConfig())

	w := postRender(t, srv, map[string]interface{}{
		"variant": "Virtual",
		"data":    map[string]interface{}{"clubName": "Example Leos"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "minutes_virtual.docx", w.Header().Get("X-Template"))
	assert.Equal(t, `attachment; filename=document.docx`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, []string{"Online: Example Leos"}, docxtest.Paragraphs(t, w.Body.Bytes(), "word/document.xml"))
}

func TestHandleRenderErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		class  string
	}{
		{
			name:   "unknown template",
			body:   map[string]interface{}{"template": "agenda.docx"},
			status: http.StatusNotFound,
			class:  "template_not_found",
		},
		{
			name:   "unclosed section",
			body:   map[string]interface{}{"template": "broken.docx"},
			status: http.StatusUnprocessableEntity,
			class:  "malformed_template",
		},
		{
			name:   "missing image",
			body:   map[string]interface{}{"template": "minutes.docx", "data": map[string]interface{}{"clubName": "x"}},
			status: http.StatusUnprocessableEntity,
			class:  "missing_asset",
		},
		{
			name:   "undecodable image",
			body:   map[string]interface{}{"template": "minutes.docx", "data": map[string]interface{}{"logo": "not an image"}},
			status: http.StatusUnprocessableEntity,
			class:  "invalid_asset",
		},
	}
	srv, _ := setupTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRender(t, srv, tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.class, resp.Class)
			assert.Equal(t, "report generation failed", resp.Error)
			assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

func TestHandleRenderRejectsBadBodies(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 64
	srv, _ := setupTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/render", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Class)

	w = postRender(t, srv, map[string]interface{}{
		"template": "minutes.docx",
		"data":     map[string]interface{}{"clubName": strings.Repeat("x", 128)},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request_too_large", decodeError(t, w).Class)
}

func TestRenderRequiresPost(t *testing.T) {
	srv, _ := setupTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/render", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, logs := setupTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "club-42")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "club-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), `"request_id": "club-42"`)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", maxRequestIDLen+1))
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestHealthz(t *testing.T) {
	srv, _ := setupTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, testConfig())
	postRender(t, srv, map[string]interface{}{"variant": "virtual", "data": map[string]interface{}{"clubName": "x"}})
	postRender(t, srv, map[string]interface{}{"template": "agenda.docx"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `leodocs_renders_total{result="ok",template="minutes_virtual.docx"} 1`)
	assert.Contains(t, body, `leodocs_renders_total{result="template_not_found",template="agenda.docx"} 1`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.Burst = 2
	srv, logs := setupTestServer(t, cfg)
	body := map[string]interface{}{"variant": "virtual", "data": map[string]interface{}{"clubName": "x"}}

	assert.Equal(t, http.StatusOK, postRender(t, srv, body).Code)
	assert.Equal(t, http.StatusOK, postRender(t, srv, body).Code)

	w := postRender(t, srv, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, w).Class)
	assert.Contains(t, logs.String(), "Rate limit exceeded")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hw := httptest.NewRecorder()
	srv.Handler().ServeHTTP(hw, req)
	assert.Equal(t, http.StatusOK, hw.Code, "health checks are not limited")
}

func TestRecoverPanics(t *testing.T) {
	srv, logs := setupTestServer(t, testConfig())
	handler := srv.requestID(srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "report generation failed", decodeError(t, w).Error)
	assert.Contains(t, logs.String(), "panic recovered: boom")
}

func TestServeAndShutdown(t *testing.T) {
	srv, _ := setupTestServer(t, testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
