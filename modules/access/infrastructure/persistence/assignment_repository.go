package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/composables"
	"github.com/iota-uz/role-import/pkg/database"
)

type grantRow struct {
	UserCode string         `db:"user_code"`
	Username sql.NullString `db:"username"`
	RoleCode string         `db:"role_code"`
	RoleName sql.NullString `db:"role_name"`
}

type AssignmentRepository struct {
	tables Tables
}

func NewAssignmentRepository(tables Tables) assignment.Repository {
	return &AssignmentRepository{tables: tables}
}

// Insert writes one pair through the transaction bound to ctx, or the
// database handle in auto-commit mode.
func (r *AssignmentRepository) Insert(ctx context.Context, p assignment.Pair) error {
	if err := r.tables.validate(); err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := tx.Rebind(fmt.Sprintf("INSERT INTO %s (user_code, role_code) VALUES (?, ?)", r.tables.Join))
	if _, err := tx.ExecContext(ctx, query, p.UserCode, p.RoleCode); err != nil {
		return database.Classify(tx.DriverName(), err)
	}
	return nil
}

func (r *AssignmentRepository) ListPairs(ctx context.Context) ([]assignment.Pair, error) {
	if err := r.tables.validate(); err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var pairs []assignment.Pair
	query := fmt.Sprintf("SELECT user_code, role_code FROM %s", r.tables.Join)
	if err := tx.SelectContext(ctx, &pairs, query); err != nil {
		return nil, errors.Wrap(database.Classify(tx.DriverName(), err), "list assignments")
	}
	return pairs, nil
}

// Delete removes each pair and returns the number of rows affected.
func (r *AssignmentRepository) Delete(ctx context.Context, pairs []assignment.Pair) (int64, error) {
	if err := r.tables.validate(); err != nil {
		return 0, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	query := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE user_code = ? AND role_code = ?", r.tables.Join))
	var total int64
	for _, p := range pairs {
		res, err := tx.ExecContext(ctx, query, p.UserCode, p.RoleCode)
		if err != nil {
			return total, errors.Wrapf(database.Classify(tx.DriverName(), err), "delete %s", p)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errors.Wrap(err, "rows affected")
		}
		total += n
	}
	return total, nil
}

// List returns every stored assignment with user and role names where known.
func (r *AssignmentRepository) List(ctx context.Context) ([]assignment.Grant, error) {
	if err := r.tables.validate(); err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT j.user_code, u.username, j.role_code, r.name AS role_name
		FROM %s j
		LEFT JOIN %s u ON u.code = j.user_code
		LEFT JOIN %s r ON r.code = j.role_code
		ORDER BY j.user_code, j.role_code`, r.tables.Join, r.tables.Users, r.tables.Roles)

	var rows []grantRow
	if err := tx.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(database.Classify(tx.DriverName(), err), "list grants")
	}
	grants := make([]assignment.Grant, len(rows))
	for i, row := range rows {
		grants[i] = assignment.Grant{
			UserCode: row.UserCode,
			Username: row.Username.String,
			RoleCode: row.RoleCode,
			RoleName: row.RoleName.String,
		}
	}
	return grants, nil
}
