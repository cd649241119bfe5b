package repository

import (
	"context"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// EditRepository persists the append-only edit log. Writes happen in a
// background worker, batched, off the mutation hot path.
type EditRepository interface {
	SaveBatch(ctx context.Context, records []domain.EditRecord) error
}
