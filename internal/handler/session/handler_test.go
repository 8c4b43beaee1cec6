package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/deleyapp/lawcopilot/internal/client/audio"
	"github.com/deleyapp/lawcopilot/internal/client/knowledge"
	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/educator"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
)

func setupRouter(t *testing.T) (*chi.Mux, *store.FileStore) {
	t.Helper()

	sessions, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}

	// The remote clients are never exercised by session CRUD.
	audioClient, _ := audio.New("http://localhost:1")
	knowledgeClient, _ := knowledge.New("http://localhost:1")
	educators := educator.NewMemoryStore(educator.Seed())
	voiceSvc := voice.NewService(audioClient, knowledgeClient, sessions, educators)

	handler := New(sessions, voiceSvc)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func TestCreateSessionValidModule(t *testing.T) {
	r, _ := setupRouter(t)
	payload, _ := json.Marshal(map[string]string{"moduleType": "teaching"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var sess chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sess.ModuleType != module.KindTeaching {
		t.Fatalf("unexpected module: %s", sess.ModuleType)
	}
	if sess.EducatorID == "" {
		t.Fatal("expected a default educator to be assigned")
	}
}

func TestCreateSessionInvalidModule(t *testing.T) {
	r, _ := setupRouter(t)
	payload, _ := json.Marshal(map[string]string{"moduleType": "astrology"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateSessionMismatchedEducator(t *testing.T) {
	r, _ := setupRouter(t)
	// ernesto-valdivia belongs to the simulation module.
	payload, _ := json.Marshal(map[string]string{
		"moduleType": "teaching",
		"educatorId": "ernesto-valdivia",
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/advisor", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Body.String(); got[0] != '[' {
		t.Fatalf("expected a JSON array, got %s", got)
	}
}

func TestGetSessionRoundTrip(t *testing.T) {
	r, sessions := setupRouter(t)

	sess := chat.NewSession(module.KindAdvisor, "carmen-ugarte", "Carmen Ugarte", "")
	sess.Append(chat.NewMessage(chat.RoleUser, "consulta"))
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/advisor/"+sess.ID, nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != sess.ID || len(got.Messages) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/teaching/missing", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r, sessions := setupRouter(t)

	sess := chat.NewSession(module.KindTeaching, "lucia-ramos", "Lucía Ramos", "")
	sess.Append(chat.NewMessage(chat.RoleUser, "hola"))
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/sessions/teaching/"+sess.ID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/teaching/"+sess.ID, nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}
