package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/handler"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/internal/testutil"
	"meslek-atlasi/pkg/hash"
	"meslek-atlasi/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cookieName = "meslek_session"

type testServer struct {
	router    *gin.Engine
	searchLLM *testutil.MockLLM
	chatLLM   *testutil.MockLLM
	users     repository.UserRepository
	messages  repository.MessageRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	passwordHash, err := hash.HashPassword("s3cret")
	require.NoError(t, err)

	indexPath := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(indexPath, []byte("<html>Meslek Atlası</html>"), 0o644))

	cfg := config.Config{
		Server:  config.ServerConfig{IndexPath: indexPath},
		Session: config.SessionConfig{Secret: "test-secret", CookieName: cookieName},
		Admin:   config.AdminConfig{Username: "admin", PasswordHash: passwordHash},
	}

	s := &testServer{
		searchLLM: new(testutil.MockLLM),
		chatLLM:   new(testutil.MockLLM),
		users:     repository.NewUserRepository(db),
		messages:  repository.NewMessageRepository(db),
	}
	jwtManager := token.NewJWTManager(cfg.Session.Secret, 30, 8)
	publisher := &testutil.RecordingPublisher{}
	prompts := service.NewPrompts(cfg.LLM.Prompt)

	conversations := service.NewConversationService(s.messages, publisher)
	svc := handler.Services{
		Identity:     service.NewIdentityService(s.users, jwtManager),
		Conversation: conversations,
		Chat: service.NewChatService(
			conversations,
			service.NewSearchService(s.searchLLM, prompts),
			service.NewAdvisorService(s.chatLLM, prompts),
			catalog.New(testutil.SampleProfessions()),
			prompts,
			publisher,
		),
		Admin: service.NewAdminService(cfg.Admin, s.users, s.messages, repository.NewTokenBlacklist(nil), jwtManager),
	}
	s.router = handler.NewRouter(cfg, jwtManager, svc)
	return s
}

// do 发送请求；cookie 非空时附带会话 cookie。
func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", cookieName)
	return nil
}

func decodeHistory(t *testing.T, w *httptest.ResponseRecorder) []model.HistoryItem {
	t.Helper()
	var items []model.HistoryItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Meslek Atlası")
}

func TestGetHistory_NewSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/get_history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	// 同一会话不会再创建用户
	w = s.do(t, http.MethodPost, "/get_history", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())

	_, total, err := s.users.FindWithPagination("", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))

	s.searchLLM.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n[{\"Meslek\":\"Grafik Tasarımcı\"},{\"Meslek\":\"Mimar\"}]\n```", nil).Once()
	s.chatLLM.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Mimar")
	})).Return("Grafik tasarım ya da mimarlık sana uygun olabilir.", nil).Once()

	w := s.do(t, http.MethodPost, "/chat", map[string]string{"message": "I like drawing and math"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "Grafik tasarım ya da mimarlık sana uygun olabilir.", resp.Reply)

	history := decodeHistory(t, s.do(t, http.MethodPost, "/get_history", nil, cookie))
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "I like drawing and math", history[0].Content)
	assert.Equal(t, model.RoleModel, history[1].Role)
	assert.Equal(t, resp.ID, history[1].ID)
	assert.Equal(t, 0, history[1].Feedback)

	// 为回复点赞
	w = s.do(t, http.MethodPost, "/feedback", map[string]interface{}{"message_id": resp.ID, "feedback_value": 1}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	history = decodeHistory(t, s.do(t, http.MethodPost, "/get_history", nil, cookie))
	assert.Equal(t, 1, history[1].Feedback)

	s.searchLLM.AssertExpectations(t)
	s.chatLLM.AssertExpectations(t)
}

func TestChat_BadRequest(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))

	w := s.do(t, http.MethodPost, "/chat", `{"text":"hi"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.chatLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestChat_GenerationFailure(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))

	s.searchLLM.On("Generate", mock.Anything, mock.Anything).Return("[]", nil).Once()
	s.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	w := s.do(t, http.MethodPost, "/chat", map[string]string{"message": "Merhaba"}, cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"AI service is temporarily unavailable"}`, w.Body.String())

	history := decodeHistory(t, s.do(t, http.MethodPost, "/get_history", nil, cookie))
	require.Len(t, history, 1)
	assert.Equal(t, model.RoleUser, history[0].Role)
}

func TestChat_DeletedUser(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/get_history", nil, nil)
	cookie := sessionCookie(t, w)

	users, _, err := s.users.FindWithPagination("", 0, 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, s.users.Delete(users[0].ID))

	w = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "Merhaba"}, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/get_history", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestFeedback(t *testing.T) {
	s := newTestServer(t)
	owner := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))
	stranger := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))

	users, _, err := s.users.FindWithPagination("", 0, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)

	ownerID := userIDFor(t, s, owner)
	msg := &model.Message{UserID: ownerID, Role: model.RoleModel, Content: "Öğretmenlik?"}
	require.NoError(t, s.messages.Create(msg))

	t.Run("foreign message", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/feedback", map[string]interface{}{"message_id": msg.ID, "feedback_value": 1}, stranger)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"status":"error"}`, w.Body.String())

		stored, err := s.messages.FindByID(msg.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Feedback)
	})

	t.Run("missing message", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/feedback", map[string]interface{}{"message_id": 424242, "feedback_value": 1}, owner)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("string values", func(t *testing.T) {
		body := `{"message_id":"` + strconv.Itoa(int(msg.ID)) + `","feedback_value":"-1"}`
		w := s.do(t, http.MethodPost, "/feedback", body, owner)
		require.Equal(t, http.StatusOK, w.Code)

		stored, err := s.messages.FindByID(msg.ID)
		require.NoError(t, err)
		assert.Equal(t, -1, stored.Feedback)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/feedback", `{"message_id":`, owner)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// userIDFor 通过会话 cookie 找到对应的用户 ID。
func userIDFor(t *testing.T, s *testServer, cookie *http.Cookie) string {
	t.Helper()
	claims, err := token.NewJWTManager("test-secret", 30, 8).VerifyToken(cookie.Value, token.SubjectSession)
	require.NoError(t, err)
	return claims.UserID
}

func TestChatWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	s.searchLLM.On("Generate", mock.Anything, mock.Anything).Return("[]", nil)
	s.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("Merhaba!", nil).Once()
	s.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "Selam"}))
	var reply handler.ChatResponse
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Merhaba!", reply.Reply)
	assert.NotZero(t, reply.ID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("raw text")))
	var failure map[string]string
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "AI service is temporarily unavailable", failure["error"])

	// 握手时下发的会话 cookie 能读取到 WebSocket 中的对话
	require.NotEmpty(t, resp.Header.Values("Set-Cookie"))
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	history := decodeHistory(t, s.do(t, http.MethodPost, "/get_history", nil, cookie))
	require.Len(t, history, 3)
	assert.Equal(t, "Selam", history[0].Content)
	assert.Equal(t, reply.ID, history[1].ID)
	assert.Equal(t, "raw text", history[2].Content)

	_, total, err := s.users.FindWithPagination("", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestChatWebSocket_ExistingSession(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	cookie := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))
	s.searchLLM.On("Generate", mock.Anything, mock.Anything).Return("[]", nil)
	s.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("Tekrar merhaba!", nil).Once()

	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()
	assert.Empty(t, resp.Header.Values("Set-Cookie"))

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "Yine ben"}))
	var reply handler.ChatResponse
	require.NoError(t, conn.ReadJSON(&reply))

	history := decodeHistory(t, s.do(t, http.MethodPost, "/get_history", nil, cookie))
	require.Len(t, history, 2)
	assert.Equal(t, "Yine ben", history[0].Content)
	assert.Equal(t, "Tekrar merhaba!", history[1].Content)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.do(t, http.MethodPost, "/get_history", nil, nil))
	userID := userIDFor(t, s, cookie)
	msg := &model.Message{UserID: userID, Role: model.RoleUser, Content: "Doktor olmak istiyorum"}
	require.NoError(t, s.messages.Create(msg))

	w := s.do(t, http.MethodGet, "/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "s3cret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.Token)
	auth := []string{"Authorization", "Bearer " + login.Data.Token}

	t.Run("list users", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/admin/users?page=1&size=10", nil, nil, auth...)
		require.Equal(t, http.StatusOK, w.Code)
		var page struct {
			Data struct {
				TotalElements int64 `json:"totalElements"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.EqualValues(t, 1, page.Data.TotalElements)
	})

	t.Run("list messages with filters", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/admin/messages?role=user&feedback=0&q=Doktor", nil, nil, auth...)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Doktor olmak istiyorum")

		w = s.do(t, http.MethodGet, "/admin/messages?role=system", nil, nil, auth...)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update message", func(t *testing.T) {
		path := "/admin/messages/" + strconv.Itoa(int(msg.ID))
		w := s.do(t, http.MethodPut, path, map[string]interface{}{"feedback": -1}, nil, auth...)
		require.Equal(t, http.StatusOK, w.Code)

		stored, err := s.messages.FindByID(msg.ID)
		require.NoError(t, err)
		assert.Equal(t, -1, stored.Feedback)
		assert.Equal(t, "Doktor olmak istiyorum", stored.Content)

		w = s.do(t, http.MethodPut, path, map[string]interface{}{"role": "assistant"}, nil, auth...)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/admin/users/"+userID, nil, nil, auth...)
		require.Equal(t, http.StatusOK, w.Code)

		_, err := s.messages.FindByID(msg.ID)
		assert.Error(t, err)

		w = s.do(t, http.MethodDelete, "/admin/messages/"+strconv.Itoa(int(msg.ID)), nil, nil, auth...)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("logout revokes token", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/admin/logout", nil, nil, auth...)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodGet, "/admin/users", nil, nil, auth...)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
