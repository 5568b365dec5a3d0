package services

import (
	"context"
	"fmt"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

type requestStatusStore interface {
	UpdateStatus(ctx context.Context, sectionCode string, status models.Status) error
}

// Lifecycle is the sole mutator of request status. The provisioning
// pipeline and the admin flows apply events at fixed checkpoints; anything
// outside the transition table is rejected.
type Lifecycle struct {
	requests requestStatusStore
}

// NewLifecycle creates a lifecycle bound to the request store.
func NewLifecycle(requests requestStatusStore) *Lifecycle {
	return &Lifecycle{requests: requests}
}

// Transition applies an event to the request, persisting and then updating
// the in-memory status.
func (l *Lifecycle) Transition(ctx context.Context, request *models.Request, event models.Event) error {
	next, ok := request.Status.Next(event)
	if !ok {
		return fmt.Errorf("%w: no transition from %q on %q",
			apperrors.ErrInvalidStatus, request.Status, event)
	}

	if err := l.requests.UpdateStatus(ctx, request.SectionCode, next); err != nil {
		return err
	}

	logger.Debug().
		Str("section", request.SectionCode).
		Str("from", string(request.Status)).
		Str("to", string(next)).
		Msg("Request status transition")

	request.Status = next
	return nil
}
