package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
	"github.com/rick-sundayai/sales-flow-security/internal/repository/memory"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

type fakeIdentity struct {
	userID   string
	email    string
	password string
	token    string
}

func (f *fakeIdentity) Authenticate(_ context.Context, email, password string) (*domain.Identity, error) {
	if email != f.email || password != f.password {
		return nil, security.ErrInvalidCredentials
	}
	return &domain.Identity{UserID: f.userID, Email: f.email}, nil
}

func (f *fakeIdentity) IdentityFromToken(_ context.Context, token string) (*domain.Identity, error) {
	if f.token == "" || token != f.token {
		return nil, security.ErrInvalidToken
	}
	return &domain.Identity{UserID: f.userID, Email: f.email}, nil
}

func (f *fakeIdentity) VerifyPassword(_ context.Context, _, password string) (bool, error) {
	return password == f.password, nil
}

func (f *fakeIdentity) Lookup(context.Context, string) (*domain.Identity, error) {
	return &domain.Identity{UserID: f.userID, Email: f.email}, nil
}

type fakeUserRepo struct {
	settings map[string]domain.TwoFactorSettings
}

func (r *fakeUserRepo) GetTwoFactor(_ context.Context, userID string) (*domain.TwoFactorSettings, error) {
	settings, ok := r.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &settings, nil
}

func (r *fakeUserRepo) SaveTwoFactor(_ context.Context, settings domain.TwoFactorSettings) error {
	if r.settings == nil {
		r.settings = make(map[string]domain.TwoFactorSettings)
	}
	r.settings[settings.UserID] = settings
	return nil
}

type authFixture struct {
	router   *gin.Engine
	sessions *usecase.SessionService
	users    *fakeUserRepo
}

// newAuthFixture wires the login surface the way the route table does:
// anonymous CSRF issuance plus a CSRF-guarded login endpoint.
func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := &fakeIdentity{
		userID:   "user-1",
		email:    "rep@example.com",
		password: "s3cret",
		token:    "platform-access-token",
	}
	users := &fakeUserRepo{}
	sessions := usecase.NewSessionService(memory.NewSessionStore(), domain.SessionPolicy{
		MaxAge:                24 * time.Hour,
		IdleTimeout:           30 * time.Minute,
		MaxConcurrentSessions: 2,
	}, nil)
	twoFactor := usecase.NewTwoFactorService(users, identity, "SalesFlow", nil)
	audit := usecase.NewAuditService(nil, nil)

	csrfCfg := middleware.CSRFConfig{CookieTTL: time.Hour}
	handler := NewAuthHandler(sessions, twoFactor, audit, identity, csrfCfg, false, nil)

	router := gin.New()
	router.GET("/csrf", handler.CSRFToken)
	router.POST("/login", middleware.CSRFGuard(csrfCfg, nil, nil), handler.Login)

	return &authFixture{router: router, sessions: sessions, users: users}
}

func fetchCSRFPair(t *testing.T, router *gin.Engine) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/csrf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("csrf issuance: status = %d, want %d", rec.Code, http.StatusOK)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			return c, rec.Header().Get(middleware.CSRFHeaderName)
		}
	}
	t.Fatal("csrf cookie not issued")
	return nil, ""
}

func postLogin(t *testing.T, router *gin.Engine, body map[string]string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	cookie, token := fetchCSRFPair(t, router)
	req.AddCookie(cookie)
	req.Header.Set(middleware.CSRFHeaderName, token)

	for _, mod := range mods {
		mod(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestLoginSetsSessionAndCSRFCookies(t *testing.T) {
	fixture := newAuthFixture(t)

	rec := postLogin(t, fixture.router, map[string]string{
		"email":    "rep@example.com",
		"password": "s3cret",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var sessionCookie, csrfCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case middleware.SessionCookieName:
			sessionCookie = c
		case middleware.CSRFCookieName:
			csrfCookie = c
		}
	}

	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
	if csrfCookie == nil || csrfCookie.Value == "" {
		t.Fatal("csrf cookie not set")
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "user-1" {
		t.Errorf("user_id = %s, want user-1", resp.UserID)
	}
}

func TestLoginBlockedWithoutCSRFPair(t *testing.T) {
	fixture := newAuthFixture(t)

	// A cross-origin form post carries credentials but no token pair.
	payload, err := json.Marshal(map[string]string{
		"email":    "rep@example.com",
		"password": "s3cret",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Error("session cookie set on forged login")
		}
	}
}

func TestCSRFTokenIssuedAnonymously(t *testing.T) {
	fixture := newAuthFixture(t)

	cookie, headerToken := fetchCSRFPair(t, fixture.router)
	if cookie.Value == "" || headerToken == "" {
		t.Fatal("anonymous client did not receive a token pair")
	}
	if cookie.Value != headerToken {
		t.Errorf("cookie token %q does not match header token %q", cookie.Value, headerToken)
	}
	if !cookie.HttpOnly {
		t.Error("csrf cookie is not HttpOnly")
	}
}

func TestLoginWithPlatformToken(t *testing.T) {
	fixture := newAuthFixture(t)

	rec := postLogin(t, fixture.router, map[string]string{}, withBearer("platform-access-token"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "user-1" {
		t.Errorf("user_id = %s, want user-1", resp.UserID)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("session cookie not set on token login")
	}
}

func TestLoginRejectsBadPlatformToken(t *testing.T) {
	fixture := newAuthFixture(t)

	rec := postLogin(t, fixture.router, map[string]string{}, withBearer("forged-token"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Error("session cookie set on invalid token")
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fixture := newAuthFixture(t)

	rec := postLogin(t, fixture.router, map[string]string{
		"email":    "rep@example.com",
		"password": "wrong",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Error("session cookie set on failed login")
		}
	}
}

func TestLoginDemandsTwoFactorWhenEnabled(t *testing.T) {
	fixture := newAuthFixture(t)

	enabledAt := time.Now().UTC()
	fixture.users.settings = map[string]domain.TwoFactorSettings{
		"user-1": {
			UserID:    "user-1",
			Enabled:   true,
			Secret:    "JBSWY3DPEHPK3PXP",
			EnabledAt: &enabledAt,
		},
	}

	rec := postLogin(t, fixture.router, map[string]string{
		"email":    "rep@example.com",
		"password": "s3cret",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var resp twoFactorRequiredResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.TwoFactorRequired {
		t.Error("response does not flag the two-factor requirement")
	}
}

func TestLoginEnforcesConcurrencyCap(t *testing.T) {
	fixture := newAuthFixture(t)

	body := map[string]string{"email": "rep@example.com", "password": "s3cret"}
	for i := 0; i < 2; i++ {
		if rec := postLogin(t, fixture.router, body); rec.Code != http.StatusOK {
			t.Fatalf("login %d: status = %d", i, rec.Code)
		}
	}

	rec := postLogin(t, fixture.router, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("third login: status = %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EvictedSessions != 1 {
		t.Errorf("evicted_sessions = %d, want 1", resp.EvictedSessions)
	}

	live, err := fixture.sessions.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 2 {
		t.Errorf("live sessions = %d, want cap of 2", len(live))
	}
}
