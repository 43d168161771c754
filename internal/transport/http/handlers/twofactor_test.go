package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

func newTwoFactorStatusRouter(t *testing.T, users *fakeUserRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := &fakeIdentity{userID: "user-1", email: "rep@example.com", password: "s3cret"}
	twoFactor := usecase.NewTwoFactorService(users, identity, "SalesFlow", nil)
	handler := NewTwoFactorHandler(twoFactor, usecase.NewAuditService(nil, nil), identity, nil)

	router := gin.New()
	router.GET("/2fa/status", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "user-1")
		handler.Status(c)
	})
	return router
}

func getStatus(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/2fa/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	return rec
}

func TestStatusOmitsBackupCodeCountWhenDisabled(t *testing.T) {
	router := newTwoFactorStatusRouter(t, &fakeUserRepo{})

	rec := getStatus(t, router)

	var resp twoFactorStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enabled {
		t.Error("enabled = true, want false")
	}
	if resp.BackupCodesRemaining != nil {
		t.Errorf("backup_codes_remaining = %d, want absent", *resp.BackupCodesRemaining)
	}
	if strings.Contains(rec.Body.String(), "backup_codes_remaining") {
		t.Error("backup_codes_remaining serialized for a disabled account")
	}
}

func TestStatusReportsBackupCodeCountWhenEnabled(t *testing.T) {
	enabledAt := time.Now().UTC()
	users := &fakeUserRepo{settings: map[string]domain.TwoFactorSettings{
		"user-1": {
			UserID:      "user-1",
			Enabled:     true,
			Secret:      "JBSWY3DPEHPK3PXP",
			BackupCodes: []string{"hash-1", "hash-2", "hash-3"},
			EnabledAt:   &enabledAt,
		},
	}}
	router := newTwoFactorStatusRouter(t, users)

	rec := getStatus(t, router)

	var resp twoFactorStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Enabled {
		t.Fatal("enabled = false, want true")
	}
	if resp.BackupCodesRemaining == nil {
		t.Fatal("backup_codes_remaining absent for an enabled account")
	}
	if *resp.BackupCodesRemaining != 3 {
		t.Errorf("backup_codes_remaining = %d, want 3", *resp.BackupCodesRemaining)
	}
}
