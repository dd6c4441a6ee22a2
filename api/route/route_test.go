package route

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"profilegate-go-server/api/controller"
	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/entity"
	domainRepo "profilegate-go-server/domain/repository"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/internal/ws"
	"profilegate-go-server/repository"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router    *gin.Engine
	repo      *repository.MemoryProfileRepository
	accessor  *MockSessionAccessor
	publisher *MockPublisher
}

func setupTestRouter(t *testing.T, profiles domainRepo.ProfileRepository) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memRepo := repository.NewMemoryProfileRepository()
	if profiles == nil {
		profiles = memRepo
	}
	accessor := newMockAccessor()
	publisher := new(MockPublisher)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	resolver := usecase.NewProfileResolver(profiles, m)
	tracker := usecase.NewSessionTracker(accessor, resolver)
	settings := usecase.NewSettingsUseCase(repository.NewMemorySettingsRepository())

	router := gin.New()
	Setup(router, &Dependencies{
		Accessor:          accessor,
		Resolver:          resolver,
		Metrics:           m,
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		SessionController: controller.NewSessionController(accessor, resolver, publisher),
		ViewController:    controller.NewViewController(resolver, m),
		ProfileController: controller.NewProfileController(usecase.NewProfileUseCase(resolver, profiles, accessor)),
		AdminController:   controller.NewAdminController(usecase.NewAdminUseCase(profiles), settings),
		WebhookController: controller.NewWebhookController(resolver, publisher, ""),
		WSHandler:         controller.NewWSHandler(accessor, tracker, m, nil),
	})

	return &testServer{router: router, repo: memRepo, accessor: accessor, publisher: publisher}
}

// seed 预置 profile 并注册 token "t-<id>"
func (s *testServer) seed(t *testing.T, id string, role entity.Role) {
	t.Helper()
	_, err := s.repo.Insert(context.Background(), &entity.Profile{ID: id, Role: role})
	require.NoError(t, err)
	s.accessor.addToken("t-"+id, id)
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestRouter(t, nil)

	w := s.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 产生一次闸门决策，再看指标
	s.do("GET", "/api/profile", "", nil)
	w = s.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `profilegate_gate_decisions_total{destination="profile",outcome="deny-sign-in"} 1`)
}

// TestSession_FirstVisitProvisions 首次访问创建 role=user 的 profile
func TestSession_FirstVisitProvisions(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.accessor.addToken("t-u1", "u1")

	w := s.do("GET", "/api/session", "t-u1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[controller.SessionResponse](t, w)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, usecase.SessionReady, resp.Status)
	assert.Equal(t, entity.RoleUser, resp.Profile.Role)
	assert.False(t, resp.IsAdmin)

	n, _ := s.repo.Count(context.Background())
	assert.Equal(t, int64(1), n)
}

func TestSession_Anonymous(t *testing.T) {
	s := setupTestRouter(t, nil)

	w := s.do("GET", "/api/session", "unknown-token", nil)

	resp := decode[controller.SessionResponse](t, w)
	assert.False(t, resp.Authenticated)
	assert.Equal(t, usecase.SessionSignedOut, resp.Status)
}

// TestSession_StoreFailureIsGeneric 存储故障：status=failed + 通用文案
func TestSession_StoreFailureIsGeneric(t *testing.T) {
	s := setupTestRouter(t, failingProfileRepository{repository.NewMemoryProfileRepository()})
	s.accessor.addToken("t-u1", "u1")

	w := s.do("GET", "/api/session", "t-u1", nil)

	resp := decode[controller.SessionResponse](t, w)
	assert.Equal(t, usecase.SessionFailed, resp.Status)
	assert.Nil(t, resp.Profile)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

// TestAuthServiceDown 认证服务故障按匿名处理：公开页面放行，受保护页面去登录
func TestAuthServiceDown(t *testing.T) {
	s := setupTestRouter(t, nil)

	w := s.do("GET", "/api/session", "broken", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, usecase.SessionSignedOut, decode[controller.SessionResponse](t, w).Status)

	w = s.do("GET", "/api/views/home", "broken", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[controller.ViewDecisionResponse](t, w).Allowed)

	w = s.do("GET", "/api/views/profile", "broken", nil)
	resp := decode[controller.ViewDecisionResponse](t, w)
	assert.False(t, resp.Allowed)
	assert.Equal(t, "sign-in", resp.Redirect)

	w = s.do("GET", "/api/profile", "broken", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "sign-in", decode[middleware.DenyResponse](t, w).Redirect)
}

func TestGate_ProtectedRoutes(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "user1", entity.RoleUser)
	s.seed(t, "mod1", entity.RoleModerator)
	s.seed(t, "admin1", entity.RoleAdmin)

	tests := []struct {
		name     string
		path     string
		token    string
		code     int
		redirect string
	}{
		{"anonymous profile", "/api/profile", "", http.StatusUnauthorized, "sign-in"},
		{"anonymous admin", "/api/admin/stats", "", http.StatusUnauthorized, "sign-in"},
		{"user profile", "/api/profile", "t-user1", http.StatusOK, ""},
		{"user admin", "/api/admin/users", "t-user1", http.StatusForbidden, "home"},
		{"moderator admin", "/api/admin/settings", "t-mod1", http.StatusForbidden, "home"},
		{"admin stats", "/api/admin/stats", "t-admin1", http.StatusOK, ""},
		{"admin users", "/api/admin/users", "t-admin1", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("GET", tt.path, tt.token, nil)
			assert.Equal(t, tt.code, w.Code)
			if tt.redirect != "" {
				resp := decode[middleware.DenyResponse](t, w)
				assert.Equal(t, tt.redirect, resp.Redirect)
				assert.NotContains(t, w.Body.String(), "error")
			}
		})
	}
}

// TestGate_FailClosed profile 解析失败时受保护页面返回 503
func TestGate_FailClosed(t *testing.T) {
	s := setupTestRouter(t, failingProfileRepository{repository.NewMemoryProfileRepository()})
	s.accessor.addToken("t-u1", "u1")

	w := s.do("GET", "/api/admin/users", "t-u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do("GET", "/api/views/admin-users", "t-u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do("GET", "/api/views/home", "t-u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[controller.ViewDecisionResponse](t, w).Allowed)
}

func TestViews(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "mod1", entity.RoleModerator)

	w := s.do("GET", "/api/views/admin-dashboard", "t-mod1", nil)
	resp := decode[controller.ViewDecisionResponse](t, w)
	assert.False(t, resp.Allowed)
	assert.Equal(t, "home", resp.Redirect)
	assert.Equal(t, "/", resp.Location)

	w = s.do("GET", "/api/views/profile", "", nil)
	resp = decode[controller.ViewDecisionResponse](t, w)
	assert.Equal(t, "sign-in", resp.Redirect)
	assert.Equal(t, "/auth/login", resp.Location)
}

func TestProfile_UpdateAndPatch(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "u1", entity.RoleUser)
	s.accessor.On("UpdateIdentityMetadata", mock.Anything, "u1", mock.Anything).Return(nil)

	w := s.do("PUT", "/api/profile", "t-u1", entity.ProfileForm{FullName: "Ann", AvatarURL: "https://img.example.com/a.png"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", *decode[entity.Profile](t, w).FullName)

	req, _ := http.NewRequest("PATCH", "/api/profile", bytes.NewBufferString(`{"full_name":"Ann Lee"}`))
	req.Header.Set("Content-Type", "application/merge-patch+json")
	req.Header.Set("Authorization", "Bearer t-u1")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	p := decode[entity.Profile](t, w)
	assert.Equal(t, "Ann Lee", *p.FullName)
	assert.Equal(t, "https://img.example.com/a.png", *p.AvatarURL)
}

func TestProfile_ValidationError(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "u1", entity.RoleUser)

	w := s.do("PUT", "/api/profile", "t-u1", entity.ProfileForm{AvatarURL: "not a url"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.accessor.AssertNotCalled(t, "UpdateIdentityMetadata", mock.Anything, mock.Anything, mock.Anything)
}

// TestAdmin_RoleChangeBumpsUpdatedAt 管理员修改角色后目标 profile 的 updated_at 严格变新
func TestAdmin_RoleChangeBumpsUpdatedAt(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "admin1", entity.RoleAdmin)
	s.seed(t, "u3", entity.RoleUser)
	before, _ := s.repo.GetByID(context.Background(), "u3")

	w := s.do("PATCH", "/api/admin/users/u3/role", "t-admin1", controller.UpdateRoleRequest{Role: "moderator"})

	require.Equal(t, http.StatusOK, w.Code)
	after := decode[entity.Profile](t, w)
	assert.Equal(t, entity.RoleModerator, after.Role)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestAdmin_RoleChangeRejections(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "admin1", entity.RoleAdmin)
	s.seed(t, "u3", entity.RoleUser)

	w := s.do("PATCH", "/api/admin/users/admin1/role", "t-admin1", controller.UpdateRoleRequest{Role: "user"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do("PATCH", "/api/admin/users/u3/role", "t-admin1", controller.UpdateRoleRequest{Role: "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("PATCH", "/api/admin/users/ghost/role", "t-admin1", controller.UpdateRoleRequest{Role: "user"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ListUsersMarksSelf(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "admin1", entity.RoleAdmin)
	s.seed(t, "u3", entity.RoleUser)

	w := s.do("GET", "/api/admin/users", "t-admin1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]controller.UserListItem](t, w)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, item.ID == "admin1", item.IsSelf)
		assert.Equal(t, "Unnamed User", item.DisplayName)
	}
}

func TestAdmin_Settings(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "admin1", entity.RoleAdmin)

	w := s.do("GET", "/api/admin/settings", "t-admin1", nil)
	assert.Equal(t, entity.DefaultSiteTitle, decode[entity.SiteSettings](t, w).SiteTitle)

	w = s.do("PUT", "/api/admin/settings", "t-admin1", entity.SiteSettings{SiteTitle: "Acme"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/api/admin/settings", "t-admin1", nil)
	assert.Equal(t, "Acme", decode[entity.SiteSettings](t, w).SiteTitle)

	w = s.do("PUT", "/api/admin/settings", "t-admin1", entity.SiteSettings{SiteTitle: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignOut(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.seed(t, "u1", entity.RoleUser)
	s.accessor.On("SignOut", mock.Anything, mock.MatchedBy(func(i *entity.Identity) bool { return i.ID == "u1" })).Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e entity.IdentityEvent) bool {
		return e.Type == entity.IdentitySignedOut && e.UserID == "u1" && e.SessionID == "sess_u1"
	})).Return(nil).Once()

	w := s.do("POST", "/api/session/signout", "t-u1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	s.accessor.AssertExpectations(t)
	s.publisher.AssertExpectations(t)

	w = s.do("POST", "/api/session/signout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestWebhook_UserCreatedProvisions user.created 提前创建 profile，重复投递不产生第二行
func TestWebhook_UserCreatedProvisions(t *testing.T) {
	s := setupTestRouter(t, nil)
	body := map[string]any{
		"type": "user.created",
		"data": map[string]any{"id": "user_42", "first_name": "Ann", "last_name": "Lee"},
	}

	for i := 0; i < 2; i++ {
		w := s.do("POST", "/webhook/clerk", "", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	p, err := s.repo.GetByID(context.Background(), "user_42")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", *p.FullName)
	assert.Equal(t, entity.RoleUser, p.Role)
	n, _ := s.repo.Count(context.Background())
	assert.Equal(t, int64(1), n)
}

func TestWebhook_EventsPublished(t *testing.T) {
	s := setupTestRouter(t, nil)
	s.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e entity.IdentityEvent) bool {
		return e.Type == entity.IdentityUpdated && e.UserID == "user_1" && e.Identity != nil
	})).Return(nil).Once()
	// 会话结束只针对该会话
	s.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e entity.IdentityEvent) bool {
		return e.Type == entity.IdentitySignedOut && e.UserID == "user_1" && e.SessionID == "sess_1"
	})).Return(nil).Once()
	// 用户删除作用于全部会话
	s.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e entity.IdentityEvent) bool {
		return e.Type == entity.IdentitySignedOut && e.UserID == "user_1" && e.SessionID == ""
	})).Return(nil).Once()

	s.do("POST", "/webhook/clerk", "", map[string]any{"type": "user.updated", "data": map[string]any{"id": "user_1"}})
	s.do("POST", "/webhook/clerk", "", map[string]any{"type": "session.revoked", "data": map[string]any{"id": "sess_1", "user_id": "user_1"}})
	s.do("POST", "/webhook/clerk", "", map[string]any{"type": "user.deleted", "data": map[string]any{"id": "user_1"}})
	w := s.do("POST", "/webhook/clerk", "", map[string]any{"type": "email.created", "data": map[string]any{}})

	assert.Equal(t, http.StatusOK, w.Code)
	s.publisher.AssertExpectations(t)
}

// 确认 Hub 与 Relay 满足发布接口
var (
	_ domainRepo.IdentityEventPublisher = (*ws.Hub)(nil)
	_ domainRepo.IdentityEventPublisher = (*ws.Relay)(nil)
	_ domainRepo.IdentityEventSource    = (*ws.Hub)(nil)
)
