package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

// UserRepository implements port.UserRepository (2FA profile fields) and the
// credential lookup the identity adapter needs, both over security.user_profiles.
type UserRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetTwoFactor loads the 2FA profile fields for the user.
func (r *UserRepository) GetTwoFactor(ctx context.Context, userID string) (*domain.TwoFactorSettings, error) {
	sql, args, err := r.builder.Select(
		"user_id",
		"twofactor_enabled",
		"COALESCE(twofactor_secret, '')",
		"COALESCE(twofactor_pending_secret, '')",
		"COALESCE(backup_codes, '{}')",
		"twofactor_enabled_at",
		"twofactor_last_used_at",
	).
		From("security.user_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select twofactor sql: %w", err)
	}

	var settings domain.TwoFactorSettings
	err = r.pool.QueryRow(ctx, sql, args...).Scan(
		&settings.UserID,
		&settings.Enabled,
		&settings.Secret,
		&settings.PendingSecret,
		&settings.BackupCodes,
		&settings.EnabledAt,
		&settings.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select twofactor settings: %w", err)
	}

	return &settings, nil
}

// SaveTwoFactor writes the 2FA profile fields back.
func (r *UserRepository) SaveTwoFactor(ctx context.Context, settings domain.TwoFactorSettings) error {
	sql, args, err := r.builder.Update("security.user_profiles").
		Set("twofactor_enabled", settings.Enabled).
		Set("twofactor_secret", nullable(settings.Secret)).
		Set("twofactor_pending_secret", nullable(settings.PendingSecret)).
		Set("backup_codes", settings.BackupCodes).
		Set("twofactor_enabled_at", settings.EnabledAt).
		Set("twofactor_last_used_at", settings.LastUsedAt).
		Where(squirrel.Eq{"user_id": settings.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update twofactor sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update twofactor settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetCredentials resolves stored credentials by email.
func (r *UserRepository) GetCredentials(ctx context.Context, email string) (*security.Credentials, error) {
	return r.credentials(ctx, squirrel.Eq{"email": email})
}

// GetCredentialsByID resolves stored credentials by user id.
func (r *UserRepository) GetCredentialsByID(ctx context.Context, userID string) (*security.Credentials, error) {
	return r.credentials(ctx, squirrel.Eq{"user_id": userID})
}

func (r *UserRepository) credentials(ctx context.Context, where squirrel.Eq) (*security.Credentials, error) {
	sql, args, err := r.builder.Select(
		"user_id",
		"email",
		"password_hash",
		"COALESCE(roles, '{}')",
	).
		From("security.user_profiles").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credentials sql: %w", err)
	}

	var creds security.Credentials
	err = r.pool.QueryRow(ctx, sql, args...).Scan(
		&creds.UserID,
		&creds.Email,
		&creds.PasswordHash,
		&creds.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select credentials: %w", err)
	}

	return &creds, nil
}

var (
	_ port.UserRepository       = (*UserRepository)(nil)
	_ security.CredentialSource = (*UserRepository)(nil)
)
