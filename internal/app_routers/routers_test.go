package approuters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"photochat/internal/auth"
	"photochat/internal/configuration"
	"photochat/internal/event"
	"photochat/internal/model"
	"photochat/internal/repo"
)

const routerSecret = "router-test-secret"

func newTestContainer(t *testing.T) *configuration.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := configuration.LoadConfig("")
	require.NoError(t, err)
	cfg.Store.Driver = configuration.DriverBadger
	cfg.Store.BadgerPath = filepath.Join(t.TempDir(), "chat")
	cfg.Auth.SecretKey = routerSecret

	container, err := configuration.NewContainer(*cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	store, ok := container.Users.(*repo.BadgerStore)
	require.True(t, ok)
	for _, u := range []model.User{
		{ID: 1, Username: "alice", IsActive: true, IsVerified: true},
		{ID: 2, Username: "bob", IsActive: true, IsVerified: true},
	} {
		require.NoError(t, store.PutUser(context.Background(), u))
	}
	return container
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	v, err := auth.NewJWTVerifier(routerSecret, "HS256")
	require.NoError(t, err)
	token, err := v.IssueToken(userID, auth.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	return token
}

func TestRouter_RESTAndLiveShareTheStore(t *testing.T) {
	req := require.New(t)
	container := newTestContainer(t)

	app := httptest.NewServer(NewRouter(container))
	t.Cleanup(app.Close)
	socket := httptest.NewServer(createSocketServer(container).Handler)
	t.Cleanup(socket.Close)

	url := "ws" + strings.TrimPrefix(socket.URL, "http") + "/ws?token=" + bearer(t, 2)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	req.Eventually(func() bool {
		_, ok := container.Hub.Registry().Lookup(2)
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	post, err := http.NewRequest(http.MethodPost, app.URL+"/api/v1/chat/messages/2", bytes.NewBufferString(`{"content":"via rest"}`))
	req.NoError(err)
	post.Header.Set("Authorization", "Bearer "+bearer(t, 1))
	post.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(post)
	req.NoError(err)
	_ = res.Body.Close()
	req.Equal(http.StatusCreated, res.StatusCode)

	req.NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	var ev event.Outbound
	req.NoError(conn.ReadJSON(&ev))
	req.Equal(event.TypeMessage, ev.Type)
	req.Equal("via rest", ev.Content)
	req.Equal(int64(1), ev.SenderID)
}

func TestRouter_MonitorAndMetrics(t *testing.T) {
	req := require.New(t)
	container := newTestContainer(t)
	router := NewRouter(container)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cf/api/monitor/stats", nil))
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), `"status":"idle"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	req.NoError(err)
	req.Contains(string(body), "photochat_sessions_active")
	req.Contains(string(body), "photochat_retention_deleted_total")
}

func TestRouter_ChatRequiresToken(t *testing.T) {
	container := newTestContainer(t)
	router := NewRouter(container)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat/conversations", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
