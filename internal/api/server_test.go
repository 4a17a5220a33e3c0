package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/extract"
	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
	"github.com/meetinsight/service/internal/session"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type stubClient struct {
	provider models.ModelType
	content  string
}

func (c *stubClient) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: c.content, Provider: c.provider}, nil
}
func (c *stubClient) HealthCheck(context.Context) error { return nil }
func (c *stubClient) Provider() models.ModelType        { return c.provider }
func (c *stubClient) Model() string                     { return "stub" }
func (c *stubClient) Close() error                      { return nil }

func newTestRouter(t *testing.T, client llm.Client) (*gin.Engine, *session.Store) {
	t.Helper()
	store := session.NewStore(time.Minute, 0)
	t.Cleanup(store.Close)

	svc := extract.NewService(llm.NewFactory(testLogger()), prompt.NewBuilder(""), store, testLogger())
	svc.RegisterClient(client)

	server := NewServer(svc, store, testLogger())
	return server.Router(gin.TestMode), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubClient{provider: models.ModelLocal, content: "[]"})

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestExtractEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &stubClient{
		provider: models.ModelLocal,
		content:  `[]`,
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/extract", map[string]any{
		"text":       "client wants to update their address",
		"model_type": "local",
		"session_id": "sess-9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result models.ExtractionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.ModelUsed != models.ModelLocal {
		t.Errorf("ModelUsed = %q", result.ModelUsed)
	}
	if result.Status != models.StatusOK {
		t.Errorf("Status = %q", result.Status)
	}

	if len(store.History("sess-9")) != 1 {
		t.Error("extraction not recorded in session history")
	}
}

func TestExtractRequiresText(t *testing.T) {
	router, _ := newTestRouter(t, &stubClient{provider: models.ModelLocal, content: "[]"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/extract", map[string]any{"model_type": "local"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSwitchModel(t *testing.T) {
	router, _ := newTestRouter(t, &stubClient{provider: models.ModelLocal, content: "[]"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/models/switch", map[string]string{"model_type": "local"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/models/switch", map[string]string{"model_type": "crystal_ball"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown model switch status = %d, want 400", rec.Code)
	}
}

func TestListModels(t *testing.T) {
	router, _ := newTestRouter(t, &stubClient{provider: models.ModelLocal, content: "[]"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Models []extract.ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Models) != 4 {
		t.Errorf("got %d models, want 4", len(body.Models))
	}
}

func TestSessionHistoryEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &stubClient{provider: models.ModelLocal, content: "[]"})
	store.Append("sess-1", session.Turn{ModelUsed: models.ModelLocal, Tasks: 2})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sessions/sess-1/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		SessionID string         `json:"session_id"`
		Turns     []session.Turn `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.SessionID != "sess-1" || len(body.Turns) != 1 {
		t.Errorf("body = %+v", body)
	}
}
