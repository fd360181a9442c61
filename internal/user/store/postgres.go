package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"contribution-metrics/internal/platform/postgres"
	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tx"
)

const userColumns = `id, email, name, company, role, role_type, growth_level, org_function,
	pillar, tribe, squad, job_title, manager_id, app_access_role, created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, query, userArgs(user)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.findOne(ctx, "find user by id", query, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.findOne(ctx, "find user by email", query, email)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	return s.findMany(ctx, "list users", query)
}

func (s *PostgresStore) ListByManager(ctx context.Context, managerID id.UserID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE manager_id = $1 ORDER BY created_at, id`
	return s.findMany(ctx, "list users by manager", query, uuid.UUID(managerID))
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", postgres.Classify(err))
	}
	return n, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, applies fn and writes the result
// in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, fn func(*models.User) (*models.User, error)) (*models.User, error) {
	var result *models.User
	err := tx.Run(ctx, s.db, func(txCtx context.Context) error {
		q := tx.QuerierFrom(txCtx, s.db)
		current, err := scanUser(q.QueryRowContext(txCtx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock user: %w", postgres.Classify(err))
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = q.ExecContext(txCtx, `
			UPDATE users SET
				email = $2, name = $3, company = $4, role = $5, role_type = $6, growth_level = $7,
				org_function = $8, pillar = $9, tribe = $10, squad = $11, job_title = $12,
				manager_id = $13, app_access_role = $14, created_at = $15, updated_at = $16
			WHERE id = $1`, userArgs(next)...)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update user: %w", postgres.Classify(err))
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", postgres.Classify(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	u, err := scanUser(tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
	return u, nil
}

func (s *PostgresStore) findMany(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.Classify(err))
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		rawID       uuid.UUID
		company     sql.NullString
		growthLevel sql.NullString
		orgFunction sql.NullString
		pillar      sql.NullString
		tribe       sql.NullString
		squad       sql.NullString
		jobTitle    sql.NullString
		managerID   uuid.NullUUID
	)
	err := row.Scan(
		&rawID, &u.Email, &u.Name, &company, &u.Role, &u.RoleType, &growthLevel, &orgFunction,
		&pillar, &tribe, &squad, &jobTitle, &managerID, &u.AppAccessRole, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(rawID)
	u.Company = fromNull(company)
	u.GrowthLevel = fromNull(growthLevel)
	u.Pillar = fromNull(pillar)
	u.Tribe = fromNull(tribe)
	u.Squad = fromNull(squad)
	u.JobTitle = fromNull(jobTitle)
	if orgFunction.Valid {
		fn := models.OrgFunction(orgFunction.String)
		u.OrgFunction = &fn
	}
	if managerID.Valid {
		m := id.UserID(managerID.UUID)
		u.ManagerID = &m
	}
	return &u, nil
}

func userArgs(u *models.User) []any {
	var orgFunction any
	if u.OrgFunction != nil {
		orgFunction = string(*u.OrgFunction)
	}
	var managerID any
	if u.ManagerID != nil {
		managerID = uuid.UUID(*u.ManagerID)
	}
	return []any{
		uuid.UUID(u.ID), u.Email, u.Name, u.Company, string(u.Role), string(u.RoleType), u.GrowthLevel,
		orgFunction, u.Pillar, u.Tribe, u.Squad, u.JobTitle, managerID, string(u.AppAccessRole),
		u.CreatedAt, u.UpdatedAt,
	}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
