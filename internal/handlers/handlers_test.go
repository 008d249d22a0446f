package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"project-management-api/internal/auth"
	"project-management-api/internal/handlers"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"
	"project-management-api/internal/routes"
	"project-management-api/internal/services"
	"project-management-api/internal/testutil"
	"project-management-api/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	t   *testing.T
	db  *gorm.DB
	hub *realtime.Hub
	r   *gin.Engine
}

// newTestServer serves the production route table over an in-memory database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.MustDB(t)
	hub := realtime.NewHub()
	dir := users.NewDirectory(db, time.Minute)
	h := handlers.New(services.NewProjectService(db, nil, hub), services.NewTaskService(db, nil, hub), dir, hub, nil)

	r := routes.SetupRoutes(h, middleware.JWTAuthMiddleware(dir), nil, nil)
	return &testServer{t: t, db: db, hub: hub, r: r}
}

// user seeds a user and returns a bearer token for it.
func (s *testServer) user(id, name string) string {
	s.t.Helper()
	testutil.SeedUser(s.t, s.db, id, name)
	token, err := auth.GenerateToken(id, name)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	return s.doRaw(method, path, token, buf.Bytes())
}

func (s *testServer) doRaw(method, path, token string, body []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func userIDs(us []handlers.UserResponse) []string {
	ids := make([]string, 0, len(us))
	for _, u := range us {
		ids = append(ids, u.ID)
	}
	return ids
}
