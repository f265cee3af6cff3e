package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/composables"
	"github.com/iota-uz/role-import/pkg/database"
	"github.com/iota-uz/role-import/pkg/logging"
	"github.com/iota-uz/role-import/pkg/metrics"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

// ProgressFunc is called after each accepted row with the running count.
type ProgressFunc func(count int, row assignment.RowResult)

// Fields names the record labels holding the username and the role.
type Fields struct {
	Username string
	Role     string
}

type ImportOptions struct {
	Fields Fields
	// BatchCommit runs every insert in one transaction; otherwise each
	// insert is committed on its own.
	BatchCommit bool
	DryRun      bool
	// SkipExisting treats pairs already stored in the join table as duplicates.
	SkipExisting bool
	Progress     ProgressFunc
}

// InsertError reports a failed insert for one input row.
type InsertError struct {
	Line     int
	UserCode string
	RoleCode string
	Err      error
}

func (e *InsertError) Error() string {
	msg := fmt.Sprintf("insert (%s, %s) from row %d", e.UserCode, e.RoleCode, e.Line)
	if e.Duplicate() {
		msg += " (duplicate key)"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// Duplicate reports whether the database rejected the pair as already present.
func (e *InsertError) Duplicate() bool { return database.IsUniqueViolation(e.Err) }

type ImportService struct {
	assignments assignment.Repository
	metrics     *metrics.ImportMetrics
	logger      *logrus.Entry
}

func NewImportService(assignments assignment.Repository, m *metrics.ImportMetrics, logger *logrus.Entry) *ImportService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ImportService{
		assignments: assignments,
		metrics:     m,
		logger:      logger.WithField("component", "import"),
	}
}

// Plan resolves every record without touching the database.
func Plan(records []spreadsheet.Record, refs *assignment.ReferenceSet, fields Fields) *assignment.Result {
	r := newResolver(refs, fields, nil)
	for _, rec := range records {
		if row := r.resolve(rec); row.Outcome.Accepted() {
			r.result.Accepted++
			r.result.Pairs = append(r.result.Pairs, row.Pair())
		}
	}
	return r.result
}

// Import resolves records against refs and writes accepted pairs. On an
// insert failure the partial result is returned with the error; with
// BatchCommit the batch was rolled back, so its Pairs and Accepted are reset.
func (s *ImportService) Import(
	ctx context.Context,
	records []spreadsheet.Record,
	refs *assignment.ReferenceSet,
	opts ImportOptions,
) (*assignment.Result, error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.Duration.Set(time.Since(started).Seconds())
		}
	}()

	var existing map[assignment.Pair]struct{}
	if opts.SkipExisting {
		pairs, err := s.assignments.ListPairs(ctx)
		if err != nil {
			return nil, err
		}
		existing = make(map[assignment.Pair]struct{}, len(pairs))
		for _, p := range pairs {
			existing[p] = struct{}{}
		}
		s.logger.WithField("count", len(existing)).Debug("loaded existing assignments")
	}

	r := newResolver(refs, opts.Fields, existing)
	run := func(ctx context.Context) error {
		for _, rec := range records {
			row := r.resolve(rec)
			s.observe(row)
			if !row.Outcome.Accepted() {
				s.logSkipped(row)
				continue
			}
			if !opts.DryRun {
				if err := s.assignments.Insert(ctx, row.Pair()); err != nil {
					return &InsertError{Line: row.Line, UserCode: row.UserCode, RoleCode: row.RoleCode, Err: err}
				}
				if s.metrics != nil {
					s.metrics.Inserted.Inc()
				}
			}
			r.result.Accepted++
			r.result.Pairs = append(r.result.Pairs, row.Pair())
			if opts.Progress != nil {
				opts.Progress(r.result.Accepted, row)
			}
		}
		return nil
	}

	var err error
	if opts.BatchCommit && !opts.DryRun {
		err = composables.InTx(ctx, run)
		if err != nil {
			r.result.Accepted = 0
			r.result.Pairs = []assignment.Pair{}
		}
	} else {
		err = run(ctx)
	}
	if err != nil {
		return r.result, errors.Wrap(err, "import")
	}

	for _, u := range r.result.UnresolvedUsers {
		s.logger.WithField("username", u).Warn("unknown user")
	}
	for _, role := range r.result.UnresolvedRoles {
		s.logger.WithField("role", role).Warn("unknown role")
	}
	return r.result, nil
}

func (s *ImportService) observe(row assignment.RowResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.RowsRead.Inc()
	if row.Outcome.Accepted() {
		s.metrics.RowsAccepted.Inc()
	} else {
		s.metrics.RowsSkipped.WithLabelValues(string(row.Outcome)).Inc()
	}
}

func (s *ImportService) logSkipped(row assignment.RowResult) {
	s.logger.WithFields(logrus.Fields{
		"line":     row.Line,
		"username": row.Username,
		"role":     row.Role,
		"outcome":  row.Outcome,
	}).Debug("row skipped")
}
