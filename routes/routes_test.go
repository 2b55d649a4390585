package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heirloom/middleware"
	"heirloom/pkg/auth"
	"heirloom/pkg/cache"
	"heirloom/pkg/config"
	"heirloom/pkg/lock"
	svc "heirloom/pkg/services"
	"heirloom/pkg/testutil"
	tokenstore "heirloom/pkg/token"
)

type server struct {
	t      *testing.T
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetRateLimitConfig(time.Minute, 100)

	db := testutil.NewDB(t)
	log := testutil.Logger()
	cfg := config.Defaults()
	cfg.AppEnv = "test"

	store, err := svc.NewLocalStore(t.TempDir(), "http://localhost/uploads/documents")
	require.NoError(t, err)
	c := cache.New(64, 0)
	t.Cleanup(c.Close)

	provider := svc.NewMockProvider()
	analytics := svc.NewAnalyticsService(db, log)
	legacy := svc.NewLegacyService(db, provider, log)
	knowledge := svc.NewKnowledgeService(db, c, log)

	r := gin.New()
	r.Use(middleware.ErrorHandler(log, false))
	RegisterRoutes(r, Dependencies{
		Config:        cfg,
		Log:           log,
		Auth:          svc.NewAuthService(db, auth.NewTokenManager("test-secret", time.Hour), tokenstore.New(db), false, log),
		Conversations: svc.NewConversationService(db, provider, analytics, legacy, lock.NewMemory(), log),
		Analytics:     analytics,
		Legacy:        legacy,
		Knowledge:     knowledge,
		Documents:     svc.NewDocumentService(db, store, knowledge, cfg.MaxUploadBytes(), log),
	})

	testutil.CreateUser(t, db, "admin@example.com", auth.RoleAdmin)
	return &server{t: t, router: r}
}

func (s *server) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *server) send(req *http.Request, token string) (int, map[string]any) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func TestHealthAndAuthRequired(t *testing.T) {
	s := newServer(t)

	code, body := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = s.do(http.MethodGet, "/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = s.do(http.MethodGet, "/conversations", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConversationFlow(t *testing.T) {
	s := newServer(t)

	code, body := s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Jo", "email": "jo@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusCreated, code, body)
	token := s.login("jo@example.com", "s3cretpass")

	code, body = s.do(http.MethodPost, "/conversations/start", token, gin.H{"initialMessage": "How do we roll back a deploy?"})
	require.Equal(t, http.StatusCreated, code, body)
	conv := body["conversation"].(map[string]any)
	assert.Equal(t, "New Conversation", conv["title"])
	require.NotNil(t, body["aiResponse"])
	id := int(conv["id"].(float64))

	path := "/conversations/" + strconv.Itoa(id)
	code, body = s.do(http.MethodPost, path+"/message", token, gin.H{"content": "And for the database?"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "bot", body["aiResponse"].(map[string]any)["type"])
	assert.Equal(t, "user", body["userMessage"].(map[string]any)["type"])

	code, body = s.do(http.MethodPost, path+"/message", token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = s.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, code)
	got := body["conversation"].(map[string]any)
	assert.Equal(t, "And for the database?", got["title"])
	assert.Len(t, got["messages"], 4)

	code, body = s.do(http.MethodGet, "/analytics/dashboard", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "personal", body["scope"])

	adminToken := s.login("admin@example.com", "password1")
	code, _ = s.do(http.MethodGet, path, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRoleGates(t *testing.T) {
	s := newServer(t)
	code, _ := s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Em", "email": "em@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusCreated, code)
	employee := s.login("em@example.com", "s3cretpass")
	admin := s.login("admin@example.com", "password1")

	entry := gin.H{"title": "Runbooks", "content": "Runbooks live in the ops wiki."}
	code, body := s.do(http.MethodPost, "/knowledge", employee, entry)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, false, body["success"])

	code, _ = s.do(http.MethodPost, "/knowledge", admin, entry)
	assert.Equal(t, http.StatusCreated, code)

	code, body = s.do(http.MethodGet, "/knowledge", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entries"], 1)

	code, _ = s.do(http.MethodGet, "/analytics/legacy-engagement", employee, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodGet, "/admin/users", employee, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = s.do(http.MethodGet, "/admin/users", admin, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["users"], 2)

	code, _ = s.do(http.MethodPost, "/auth/logout", employee, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/auth/me", employee, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDocumentUpload(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "password1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("document", "deploys.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Deploys go out every Tuesday. Roll back with the release tool when alarms fire."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/knowledge/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, body := s.send(req, admin)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "deploys", body["knowledgeEntry"].(map[string]any)["title"])

	code, body = s.do(http.MethodGet, "/knowledge/documents/my", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["documents"], 1)

	req = httptest.NewRequest(http.MethodPost, "/knowledge/upload", bytes.NewReader(nil))
	code, _ = s.send(req, admin)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestConversationWebSocket(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	code, _ := s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Wes", "email": "wes@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusCreated, code)
	token := s.login("wes@example.com", "s3cretpass")

	code, body := s.do(http.MethodPost, "/conversations/start", token, gin.H{"title": "Socket"})
	require.Equal(t, http.StatusCreated, code)
	id := int(body["conversation"].(map[string]any)["id"].(float64))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/conversations/" + strconv.Itoa(id)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "message", "content": "What is our PTO policy?"}))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "reply", frame["type"])
	assert.Equal(t, "user", frame["userMessage"].(map[string]any)["type"])
	assert.Equal(t, "What is our PTO policy?", frame["userMessage"].(map[string]any)["content"])
	assert.Equal(t, "bot", frame["aiResponse"].(map[string]any)["type"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "message", "content": "   "}))
	frame = nil
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, float64(http.StatusBadRequest), frame["status"])

	code, body = s.do(http.MethodGet, "/conversations/"+strconv.Itoa(id), token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["conversation"].(map[string]any)["messages"], 2)

	admin := s.login("admin@example.com", "password1")
	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token="+admin, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
