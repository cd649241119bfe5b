package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// EditRepository is a mock for repository.EditRepository.
type EditRepository struct {
	mock.Mock
}

func (m *EditRepository) SaveBatch(ctx context.Context, records []domain.EditRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}
