package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/composables"
	"github.com/iota-uz/role-import/pkg/logging"
)

type RollbackService struct {
	assignments assignment.Repository
	logger      *logrus.Entry
}

func NewRollbackService(assignments assignment.Repository, logger *logrus.Entry) *RollbackService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RollbackService{assignments: assignments, logger: logger.WithField("component", "rollback")}
}

// Rollback deletes pairs in one transaction and returns the rows removed.
func (s *RollbackService) Rollback(ctx context.Context, pairs []assignment.Pair) (int64, error) {
	var deleted int64
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		n, err := s.assignments.Delete(txCtx, pairs)
		deleted = n
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "rollback")
	}
	if deleted != int64(len(pairs)) {
		s.logger.WithFields(logrus.Fields{
			"requested": len(pairs),
			"deleted":   deleted,
		}).Warn("some assignments were already absent")
	}
	return deleted, nil
}
