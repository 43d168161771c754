package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
)

// AuditRepository implements port.AuditRepository for PostgreSQL.
// Entries are append-only; there is no update path by design.
type AuditRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert persists one audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert("security.audit_log").
		Columns(
			"id",
			"user_id",
			"action",
			"resource",
			"resource_id",
			"outcome",
			"risk_level",
			"details",
			"ip_address",
			"user_agent",
			"session_id",
			"created_at",
		).
		Values(
			entry.ID,
			nullable(entry.UserID),
			entry.Action,
			nullable(entry.Resource),
			nullable(entry.ResourceID),
			string(entry.Outcome),
			string(entry.RiskLevel),
			details,
			nullable(entry.IPAddress),
			nullable(entry.UserAgent),
			nullable(entry.SessionID),
			entry.Timestamp,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// Query returns entries matching the filter, newest-first, plus the total match count.
func (r *AuditRepository) Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int, error) {
	countQuery := r.applyFilter(r.builder.Select("COUNT(*)").From("security.audit_log"), filter)

	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count audit sql: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := r.applyFilter(r.builder.Select(
		"id",
		"COALESCE(user_id, '')",
		"action",
		"COALESCE(resource, '')",
		"COALESCE(resource_id, '')",
		"outcome",
		"risk_level",
		"details",
		"COALESCE(ip_address, '')",
		"COALESCE(user_agent, '')",
		"COALESCE(session_id, '')",
		"created_at",
	).From("security.audit_log"), filter).
		OrderBy("created_at DESC").
		Offset(uint64(page.Offset))
	if page.Limit > 0 {
		query = query.Limit(uint64(page.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query audit sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		var details []byte
		var outcome, riskLevel string
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.Resource,
			&entry.ResourceID,
			&outcome,
			&riskLevel,
			&details,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.SessionID,
			&entry.Timestamp,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Outcome = domain.Outcome(outcome)
		entry.RiskLevel = domain.RiskLevel(riskLevel)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}

// DeleteOlderThan removes entries older than the cutoff and returns the count removed.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	sql, args, err := r.builder.Delete("security.audit_log").
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete audit sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *AuditRepository) applyFilter(query squirrel.SelectBuilder, filter domain.AuditFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Action != "" {
		query = query.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.Resource != "" {
		query = query.Where(squirrel.Eq{"resource": filter.Resource})
	}
	if filter.Outcome != "" {
		query = query.Where(squirrel.Eq{"outcome": string(filter.Outcome)})
	}
	if filter.RiskLevel != "" {
		query = query.Where(squirrel.Eq{"risk_level": string(filter.RiskLevel)})
	}
	if !filter.StartDate.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": filter.StartDate})
	}
	if !filter.EndDate.IsZero() {
		query = query.Where(squirrel.Lt{"created_at": filter.EndDate})
	}
	return query
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return encoded, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ port.AuditRepository = (*AuditRepository)(nil)
