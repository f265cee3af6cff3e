package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/composables"
	"github.com/iota-uz/role-import/pkg/database"
)

type codeName struct {
	Code sql.NullString `db:"code"`
	Name sql.NullString `db:"name"`
}

type ReferenceRepository struct {
	tables Tables
}

func NewReferenceRepository(tables Tables) assignment.ReferenceRepository {
	return &ReferenceRepository{tables: tables}
}

// Load runs the three lookup queries. Rows with a NULL key or code are skipped.
func (r *ReferenceRepository) Load(ctx context.Context) (*assignment.ReferenceSet, error) {
	if err := r.tables.validate(); err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var names []sql.NullString
	if err := tx.SelectContext(ctx, &names, "SELECT username FROM "+r.tables.Users); err != nil {
		return nil, errors.Wrap(database.Classify(tx.DriverName(), err), "load usernames")
	}
	usernames := make([]string, 0, len(names))
	for _, n := range names {
		if n.Valid {
			usernames = append(usernames, n.String)
		}
	}

	userCodes, err := r.loadCodes(ctx, tx, "SELECT code, username AS name FROM "+r.tables.Users)
	if err != nil {
		return nil, errors.Wrap(err, "load user codes")
	}
	roleCodes, err := r.loadCodes(ctx, tx, "SELECT code, name FROM "+r.tables.Roles)
	if err != nil {
		return nil, errors.Wrap(err, "load role codes")
	}
	return assignment.NewReferenceSet(usernames, userCodes, roleCodes), nil
}

func (r *ReferenceRepository) loadCodes(ctx context.Context, tx composables.Executor, query string) (map[string]string, error) {
	var rows []codeName
	if err := tx.SelectContext(ctx, &rows, query); err != nil {
		return nil, database.Classify(tx.DriverName(), err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Code.Valid && row.Name.Valid {
			out[row.Name.String] = row.Code.String
		}
	}
	return out, nil
}
