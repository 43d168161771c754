package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// AuditHandler exposes the admin-only audit log query surface.
type AuditHandler struct {
	audit  *usecase.AuditService
	logger *zap.Logger
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit *usecase.AuditService, log *zap.Logger) *AuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{audit: audit, logger: log}
}

// Query returns audit entries matching the query-string filters, newest
// first. Reading the audit log is itself an audited action.
func (h *AuditHandler) Query(c *gin.Context) {
	adminID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	filter, page, err := parseAuditQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	if page.Limit <= 0 {
		page.Limit = usecase.DefaultAuditPageLimit
	}
	if page.Limit > usecase.MaxAuditPageLimit {
		page.Limit = usecase.MaxAuditPageLimit
	}

	ctx := c.Request.Context()
	entries, total, err := h.audit.Query(ctx, filter, page)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   adminID,
		Action:   domain.ActionAuditLogView,
		Resource: "audit_log",
		Outcome:  domain.OutcomeSuccess,
		Details:  map[string]any{"matched": total},
		Request:  middleware.RequestContextFrom(c),
	})

	views := make([]auditEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, auditEntryView{
			ID:         entry.ID,
			UserID:     entry.UserID,
			Action:     entry.Action,
			Resource:   entry.Resource,
			ResourceID: entry.ResourceID,
			Outcome:    string(entry.Outcome),
			RiskLevel:  string(entry.RiskLevel),
			Details:    entry.Details,
			IPAddress:  entry.IPAddress,
			UserAgent:  entry.UserAgent,
			SessionID:  entry.SessionID,
			Timestamp:  entry.Timestamp,
		})
	}

	c.JSON(http.StatusOK, auditQueryResponse{
		Entries: views,
		Total:   total,
		Offset:  page.Offset,
		Limit:   page.Limit,
	})
}

func parseAuditQuery(c *gin.Context) (domain.AuditFilter, domain.AuditPage, error) {
	filter := domain.AuditFilter{
		UserID:    c.Query("user_id"),
		Action:    c.Query("action"),
		Resource:  c.Query("resource"),
		Outcome:   domain.Outcome(c.Query("outcome")),
		RiskLevel: domain.RiskLevel(c.Query("risk_level")),
	}

	var page domain.AuditPage
	var err error

	if raw := c.Query("start_date"); raw != "" {
		filter.StartDate, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, &queryError{"start_date must be RFC 3339"}
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		filter.EndDate, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, &queryError{"end_date must be RFC 3339"}
		}
	}

	if raw := c.Query("offset"); raw != "" {
		page.Offset, err = strconv.Atoi(raw)
		if err != nil || page.Offset < 0 {
			return filter, page, &queryError{"offset must be a non-negative integer"}
		}
	}
	if raw := c.Query("limit"); raw != "" {
		page.Limit, err = strconv.Atoi(raw)
		if err != nil || page.Limit < 0 {
			return filter, page, &queryError{"limit must be a non-negative integer"}
		}
	}

	return filter, page, nil
}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }
