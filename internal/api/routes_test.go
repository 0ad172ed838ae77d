package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/moodcast/adapters/memory"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/internal/auth"
	"github.com/satriahrh/moodcast/internal/config"
	"github.com/satriahrh/moodcast/internal/websocket"
	"github.com/satriahrh/moodcast/usecase"
)

type fakeStatus struct {
	status usecase.LoopStatus
}

func (f *fakeStatus) Status() usecase.LoopStatus { return f.status }

type testEnv struct {
	e        *echo.Echo
	sessions *memory.SessionRepository
	session  *entities.Session
	tokens   *auth.TokenIssuer
	hub      *websocket.Hub
}

func setupTest(t *testing.T, secret string) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	table, err := config.DefaultMoodTable()
	if err != nil {
		t.Fatal(err)
	}

	sessions := memory.NewSessionRepository()
	session := entities.NewSession(entities.RemoteStream{ID: "str_1"})
	if err := sessions.Create(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	entry := session.Record(entities.MoodTransitionEvent{ID: "e1", From: "neutral", To: "excited", TriggeringText: "wow", Timestamp: time.Now()}, nil)
	sessions.AppendTimeline(context.Background(), session.ID, entry)

	hub := websocket.NewHub(session.ID, "neutral", nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	tokens := auth.NewTokenIssuer(secret, time.Hour)

	e := echo.New()
	InitRoutes(e, Deps{
		Loop:       &fakeStatus{status: usecase.LoopStatus{State: "running", Mood: "neutral", Cycles: 3}},
		Table:      table,
		Classifier: usecase.NewMoodClassifier(table),
		Sessions:   sessions,
		SessionID:  session.ID,
		Hub:        hub,
		Tokens:     tokens,
	}, logger)

	return &testEnv{e: e, sessions: sessions, session: session, tokens: tokens, hub: hub}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := setupTest(t, "")
	rec := env.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	env := setupTest(t, "")
	rec := env.do(http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["state"] != "running" || resp["mood"] != "neutral" || resp["cycles"] != float64(3) {
		t.Errorf("resp = %v", resp)
	}
	if _, ok := resp["overlay_clients"]; !ok {
		t.Error("overlay_clients missing")
	}
}

func TestMoods(t *testing.T) {
	env := setupTest(t, "")
	rec := env.do(http.MethodGet, "/api/v1/moods", "")

	var moods []MoodInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &moods); err != nil {
		t.Fatal(err)
	}
	if len(moods) != 5 {
		t.Fatalf("moods = %+v", moods)
	}
	if moods[0].Label != "excited" || moods[0].Priority != 1 {
		t.Errorf("first = %+v", moods[0])
	}

	defaults := 0
	for _, m := range moods {
		if m.Default {
			defaults++
			if m.Label != "neutral" {
				t.Errorf("default = %s", m.Label)
			}
		}
		if m.Style.Prompt == "" {
			t.Errorf("%s has no style", m.Label)
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d", defaults)
	}
}

func TestTimeline(t *testing.T) {
	env := setupTest(t, "")

	rec := env.do(http.MethodGet, "/api/v1/timeline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline = %d %s", rec.Code, rec.Body.String())
	}
	var session entities.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.ID != env.session.ID || len(session.Timeline) != 1 || session.Timeline[0].To != "excited" {
		t.Errorf("session = %+v", session)
	}

	rec = env.do(http.MethodGet, "/api/v1/timeline?session_id=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d", rec.Code)
	}
}

func TestClassify(t *testing.T) {
	env := setupTest(t, "")

	tests := []struct {
		text    string
		mood    entities.MoodLabel
		keyword string
		changes bool
	}{
		{"WOW what a goal", "excited", "wow", true},
		{"oh no, terrible", "sad", "no", true},
		{"the weather is fine", "neutral", "", false},
		{"", "neutral", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			body, _ := json.Marshal(ClassifyRequest{Text: tt.text})
			rec := env.do(http.MethodPost, "/api/v1/classify", string(body))
			if rec.Code != http.StatusOK {
				t.Fatalf("classify = %d", rec.Code)
			}
			var resp ClassifyResponse
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Mood != tt.mood || resp.Keyword != tt.keyword || resp.Changes != tt.changes {
				t.Errorf("resp = %+v", resp)
			}
		})
	}

	rec := env.do(http.MethodPost, "/api/v1/classify", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", rec.Code)
	}
}

func TestDiagnosticsOpenWithSecret(t *testing.T) {
	env := setupTest(t, "s3cret")

	for _, path := range []string{"/api/v1/status", "/api/v1/moods", "/api/v1/timeline"} {
		if rec := env.do(http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
	if rec := env.do(http.MethodPost, "/api/v1/classify", `{"text":"wow"}`); rec.Code != http.StatusOK {
		t.Errorf("POST /api/v1/classify = %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/ws", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /ws without token = %d", rec.Code)
	}
}

func TestOverlayToken(t *testing.T) {
	env := setupTest(t, "s3cret")

	rec := env.do(http.MethodPost, "/api/v1/overlay/token", `{"client_id":"obs","secret":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/v1/overlay/token", `{"client_id":"obs","secret":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("token = %d %s", rec.Code, rec.Body.String())
	}
	var resp OverlayTokenResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	claims, err := env.tokens.ValidateToken(resp.Token)
	if err != nil || claims.ClientID != "obs" || resp.ClientID != "obs" {
		t.Errorf("claims = %+v, err = %v", claims, err)
	}

	open := setupTest(t, "")
	if rec := open.do(http.MethodPost, "/api/v1/overlay/token", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("disabled auth = %d", rec.Code)
	}
}

func TestFeed_RequiresToken(t *testing.T) {
	env := setupTest(t, "s3cret")

	rec := env.do(http.MethodGet, "/ws", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/ws?token=garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token = %d", rec.Code)
	}
}

func TestFeed_AcceptsQueryToken(t *testing.T) {
	env := setupTest(t, "s3cret")
	server := httptest.NewServer(env.e)
	defer server.Close()

	token, _, err := env.tokens.GenerateOverlayToken("obs")
	if err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"welcome"`) {
		t.Errorf("first message = %s", data)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer abc")
	if got := bearerToken(req); got != "abc" {
		t.Errorf("bearerToken = %q", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := bearerToken(req); got != "" {
		t.Errorf("bearerToken = %q", got)
	}
}
