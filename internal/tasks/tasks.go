package tasks

import (
	"encoding/json"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// Task type names routed through asynq.
const (
	TypeEditPersist    = "edit:persist"    // append one accepted mutation to the edit log
	TypeCacheReconcile = "cache:reconcile" // periodic store-to-cache summary reconciliation
)

// EditPersistPayload carries one accepted mutation to the edit-log worker.
type EditPersistPayload struct {
	Record domain.EditRecord
}

// NewEditPersistPayload serializes an edit record for enqueueing.
func NewEditPersistPayload(record domain.EditRecord) ([]byte, error) {
	payload := EditPersistPayload{Record: record}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}
