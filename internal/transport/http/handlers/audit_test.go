package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

func contextWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/admin/audit-log?"+rawQuery, nil)
	return c
}

func TestParseAuditQuery(t *testing.T) {
	c := contextWithQuery(t, "user_id=user-1&action=auth.login&risk_level=high&start_date=2026-03-01T00:00:00Z&end_date=2026-03-02T00:00:00Z&offset=20&limit=10")

	filter, page, err := parseAuditQuery(c)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if filter.UserID != "user-1" {
		t.Errorf("user_id = %s", filter.UserID)
	}
	if filter.Action != "auth.login" {
		t.Errorf("action = %s", filter.Action)
	}
	if filter.RiskLevel != domain.RiskHigh {
		t.Errorf("risk_level = %s", filter.RiskLevel)
	}
	wantStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !filter.StartDate.Equal(wantStart) {
		t.Errorf("start_date = %v, want %v", filter.StartDate, wantStart)
	}
	if page.Offset != 20 || page.Limit != 10 {
		t.Errorf("page = %+v, want offset 20 limit 10", page)
	}
}

func TestParseAuditQueryEmptyMeansNoConstraint(t *testing.T) {
	c := contextWithQuery(t, "")

	filter, page, err := parseAuditQuery(c)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if filter != (domain.AuditFilter{}) {
		t.Errorf("filter = %+v, want zero value", filter)
	}
	if page != (domain.AuditPage{}) {
		t.Errorf("page = %+v, want zero value", page)
	}
}

func TestParseAuditQueryRejectsBadInput(t *testing.T) {
	cases := []string{
		"start_date=yesterday",
		"end_date=03/01/2026",
		"offset=-1",
		"offset=abc",
		"limit=-5",
	}

	for _, rawQuery := range cases {
		t.Run(rawQuery, func(t *testing.T) {
			c := contextWithQuery(t, rawQuery)
			if _, _, err := parseAuditQuery(c); err == nil {
				t.Error("bad input accepted")
			}
		})
	}
}
