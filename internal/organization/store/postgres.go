package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/platform/postgres"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tx"
)

const orgColumns = `id, name, token_expires_at, created_at, updated_at`

// PostgresStore persists organizations in PostgreSQL. Access tokens are
// written as given; sealing happens before they reach the store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, org *models.Organization, accessToken string) error {
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO github_organizations (id, name, access_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(org.ID), org.Name, accessToken, org.TokenExpiresAt, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create organization: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	return s.findOne(ctx, "find organization by id",
		`SELECT `+orgColumns+` FROM github_organizations WHERE id = $1`, uuid.UUID(orgID))
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	return s.findOne(ctx, "find organization by name",
		`SELECT `+orgColumns+` FROM github_organizations WHERE name = $1`, name)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+orgColumns+` FROM github_organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", postgres.Classify(err))
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("list organizations: scan: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", postgres.Classify(err))
	}
	return orgs, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM github_organizations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count organizations: %w", postgres.Classify(err))
	}
	return n, nil
}

func (s *PostgresStore) Execute(ctx context.Context, orgID id.OrganizationID, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return s.mutate(ctx, orgID, nil, fn)
}

func (s *PostgresStore) RotateToken(ctx context.Context, orgID id.OrganizationID, accessToken string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return s.mutate(ctx, orgID, &accessToken, fn)
}

func (s *PostgresStore) AccessToken(ctx context.Context, orgID id.OrganizationID) (string, error) {
	var token string
	err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT access_token FROM github_organizations WHERE id = $1`, uuid.UUID(orgID)).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("load access token: %w", postgres.Classify(err))
	}
	return token, nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrganizationID) error {
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM github_organizations WHERE id = $1`, uuid.UUID(orgID))
	if err != nil {
		return fmt.Errorf("delete organization: %w", postgres.Classify(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete organization rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// mutate runs fn under SELECT ... FOR UPDATE and writes the result, replacing the
// access token too when token is non-nil.
func (s *PostgresStore) mutate(ctx context.Context, orgID id.OrganizationID, token *string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	var result *models.Organization
	err := tx.Run(ctx, s.db, func(txCtx context.Context) error {
		q := tx.QuerierFrom(txCtx, s.db)
		current, err := scanOrganization(q.QueryRowContext(txCtx,
			`SELECT `+orgColumns+` FROM github_organizations WHERE id = $1 FOR UPDATE`, uuid.UUID(orgID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock organization: %w", postgres.Classify(err))
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = q.ExecContext(txCtx, `
			UPDATE github_organizations
			SET name = $2, token_expires_at = $3, updated_at = $4,
			    access_token = COALESCE($5, access_token)
			WHERE id = $1`,
			uuid.UUID(orgID), next.Name, next.TokenExpiresAt, next.UpdatedAt, token,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update organization: %w", postgres.Classify(err))
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Organization, error) {
	org, err := scanOrganization(tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
	return org, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var (
		org   models.Organization
		rawID uuid.UUID
	)
	if err := row.Scan(&rawID, &org.Name, &org.TokenExpiresAt, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.ID = id.OrganizationID(rawID)
	return &org, nil
}
