package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/repository/memory"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

func newSessionFixture(t *testing.T) (*gin.Engine, *usecase.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := usecase.NewSessionService(memory.NewSessionStore(), domain.SessionPolicy{
		MaxAge:      24 * time.Hour,
		IdleTimeout: 30 * time.Minute,
	}, nil)
	handler := NewSessionHandler(sessions, usecase.NewAuditService(nil, nil),
		middleware.CSRFConfig{CookieTTL: time.Hour}, false, nil)

	router := gin.New()
	router.GET("/sessions", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "user-1")
		handler.List(c)
	})
	router.POST("/sessions/:id/revoke", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "user-1")
		handler.Destroy(c)
	})
	router.POST("/sessions/revoke-all", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "user-1")
		handler.DestroyAll(c)
	})

	return router, sessions
}

func TestListMasksIPAddresses(t *testing.T) {
	router, sessions := newSessionFixture(t)

	_, _, err := sessions.Create(context.Background(), "user-1", domain.RequestContext{
		IPAddress: "192.168.1.100",
		UserAgent: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp sessionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(resp.Sessions))
	}
	if resp.Sessions[0].IPAddress != "192.168.1.*" {
		t.Errorf("ip = %s, want 192.168.1.*", resp.Sessions[0].IPAddress)
	}
	if strings.Contains(rec.Body.String(), "fingerprint") {
		t.Error("fingerprint leaked into the session list")
	}
}

func TestDestroyRejectsForeignSession(t *testing.T) {
	router, sessions := newSessionFixture(t)

	foreign, _, err := sessions.Create(context.Background(), "user-2", domain.RequestContext{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+foreign.ID+"/revoke", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// The foreign session must still exist.
	remaining, err := sessions.List(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("foreign sessions = %d, want 1 untouched", len(remaining))
	}
}

func TestDestroyAllRevokesEverythingAndClearsCookie(t *testing.T) {
	router, sessions := newSessionFixture(t)

	for i := 0; i < 3; i++ {
		if _, _, err := sessions.Create(context.Background(), "user-1", domain.RequestContext{}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/revoke-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp revokedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Revoked != 3 {
		t.Errorf("revoked = %d, want 3", resp.Revoked)
	}

	remaining, err := sessions.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %d, want 0", len(remaining))
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestDestroyOwnSession(t *testing.T) {
	router, sessions := newSessionFixture(t)

	session, _, err := sessions.Create(context.Background(), "user-1", domain.RequestContext{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/revoke", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	remaining, err := sessions.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("sessions = %d, want 0", len(remaining))
	}
}
