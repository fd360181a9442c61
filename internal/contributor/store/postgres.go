package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/platform/postgres"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tx"
)

const contributorColumns = `id, current_username, current_email, current_name,
	all_known_usernames, all_known_emails, all_known_names,
	user_id, last_active_date, status, created_at, updated_at`

// filterClause matches ListFilter; $1 user id, $2 username, $3 email.
const filterClause = `
	WHERE ($1::uuid IS NULL OR user_id = $1)
	  AND ($2 = '' OR current_username = $2 OR $2 = ANY(all_known_usernames))
	  AND ($3 = '' OR current_email = $3 OR $3 = ANY(all_known_emails))`

// PostgresStore persists contributors in PostgreSQL. Alias lists are text[]
// columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Contributor) error {
	query := `INSERT INTO github_contributors (` + contributorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, query, contributorArgs(c)...)
	if err != nil {
		return writeErr("create contributor", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contributorID id.ContributorID) (*models.Contributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM github_contributors WHERE id = $1`
	return s.findOne(ctx, "find contributor by id", query, uuid.UUID(contributorID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.Contributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM github_contributors WHERE current_username = $1`
	return s.findOne(ctx, "find contributor by username", query, username)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, address string) (*models.Contributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM github_contributors
		WHERE current_email = $1 ORDER BY created_at, id LIMIT 1`
	return s.findOne(ctx, "find contributor by email", query, address)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Contributor, int, error) {
	var userID uuid.NullUUID
	if filter.UserID != nil {
		userID = uuid.NullUUID{UUID: uuid.UUID(*filter.UserID), Valid: true}
	}
	q := tx.QuerierFrom(ctx, s.db)

	var total int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM github_contributors`+filterClause,
		userID, filter.Username, filter.Email).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count contributors: %w", postgres.Classify(err))
	}

	query := `SELECT ` + contributorColumns + ` FROM github_contributors` + filterClause + `
		ORDER BY created_at, id LIMIT $4 OFFSET $5`
	rows, err := q.QueryContext(ctx, query, userID, filter.Username, filter.Email, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list contributors: %w", postgres.Classify(err))
	}
	defer rows.Close()

	contributors := make([]*models.Contributor, 0, filter.Limit)
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list contributors: scan: %w", err)
		}
		contributors = append(contributors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list contributors: %w", postgres.Classify(err))
	}
	return contributors, total, nil
}

func (s *PostgresStore) Count(ctx context.Context) (total, linked int, err error) {
	err = tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(user_id) FROM github_contributors`).Scan(&total, &linked)
	if err != nil {
		return 0, 0, fmt.Errorf("count contributors: %w", postgres.Classify(err))
	}
	return total, linked, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// result in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, contributorID id.ContributorID, fn func(*models.Contributor) (*models.Contributor, error)) (*models.Contributor, error) {
	var result *models.Contributor
	err := tx.Run(ctx, s.db, func(txCtx context.Context) error {
		q := tx.QuerierFrom(txCtx, s.db)
		current, err := scanContributor(q.QueryRowContext(txCtx,
			`SELECT `+contributorColumns+` FROM github_contributors WHERE id = $1 FOR UPDATE`, uuid.UUID(contributorID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock contributor: %w", postgres.Classify(err))
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = q.ExecContext(txCtx, `
			UPDATE github_contributors SET
				current_username = $2, current_email = $3, current_name = $4,
				all_known_usernames = $5, all_known_emails = $6, all_known_names = $7,
				user_id = $8, last_active_date = $9, status = $10, created_at = $11, updated_at = $12
			WHERE id = $1`, contributorArgs(next)...)
		if err != nil {
			return writeErr("update contributor", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, contributorID id.ContributorID) error {
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM github_contributors WHERE id = $1`, uuid.UUID(contributorID))
	if err != nil {
		return fmt.Errorf("delete contributor: %w", postgres.Classify(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contributor rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UnlinkUser clears every link to userID in one statement and returns the
// contributors it changed. It must run before the user row is deleted, since
// ON DELETE SET NULL leaves nothing to report afterwards.
func (s *PostgresStore) UnlinkUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.Contributor, error) {
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, `
		UPDATE github_contributors SET user_id = NULL, updated_at = $2
		WHERE user_id = $1
		RETURNING `+contributorColumns, uuid.UUID(userID), now)
	if err != nil {
		return nil, fmt.Errorf("unlink contributors: %w", postgres.Classify(err))
	}
	defer rows.Close()

	unlinked := make([]*models.Contributor, 0)
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("unlink contributors: scan: %w", err)
		}
		unlinked = append(unlinked, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unlink contributors: %w", postgres.Classify(err))
	}
	return unlinked, nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Contributor, error) {
	c, err := scanContributor(tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
	return c, nil
}

func writeErr(op string, err error) error {
	switch {
	case postgres.IsUniqueViolation(err):
		return sentinel.ErrAlreadyUsed
	case postgres.IsForeignKeyViolation(err):
		return sentinel.ErrBrokenReference
	default:
		return fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContributor(row rowScanner) (*models.Contributor, error) {
	var (
		c              models.Contributor
		rawID          uuid.UUID
		userID         uuid.NullUUID
		lastActiveDate sql.NullTime
		usernames      pq.StringArray
		emails         pq.StringArray
		names          pq.StringArray
	)
	err := row.Scan(
		&rawID, &c.CurrentUsername, &c.CurrentEmail, &c.CurrentName,
		&usernames, &emails, &names,
		&userID, &lastActiveDate, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ContributorID(rawID)
	c.AllKnownUsernames = append([]string{}, usernames...)
	c.AllKnownEmails = append([]string{}, emails...)
	c.AllKnownNames = append([]string{}, names...)
	if userID.Valid {
		u := id.UserID(userID.UUID)
		c.UserID = &u
	}
	if lastActiveDate.Valid {
		t := lastActiveDate.Time
		c.LastActiveDate = &t
	}
	return &c, nil
}

func contributorArgs(c *models.Contributor) []any {
	var userID any
	if c.UserID != nil {
		userID = uuid.UUID(*c.UserID)
	}
	return []any{
		uuid.UUID(c.ID), c.CurrentUsername, c.CurrentEmail, c.CurrentName,
		pq.Array(c.AllKnownUsernames), pq.Array(c.AllKnownEmails), pq.Array(c.AllKnownNames),
		userID, c.LastActiveDate, string(c.Status), c.CreatedAt, c.UpdatedAt,
	}
}
