package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository/mocks"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// editLoggerMock mocks the mutation pipeline's edit-log sink.
type editLoggerMock struct {
	mock.Mock
}

func (m *editLoggerMock) EnqueueEdit(ctx context.Context, record domain.EditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newMutationService(t *testing.T) (*service.MutationService, *mocks.RoomRepository, *mocks.RoomCache, *editLoggerMock) {
	t.Helper()
	mockRepo := new(mocks.RoomRepository)
	mockCache := new(mocks.RoomCache)
	edits := new(editLoggerMock)
	return service.NewMutationService(mockRepo, mockCache, edits), mockRepo, mockCache, edits
}

// expectFinish wires the best-effort cache sync and edit enqueue that
// follow every accepted mutation.
func expectFinish(ctx context.Context, mockRepo *mocks.RoomRepository, mockCache *mocks.RoomCache, edits *editLoggerMock, roomID string, version uint64) {
	room := &domain.Room{ID: roomID, Name: "Test", Version: version}
	mockRepo.On("FindRoom", ctx, roomID).Return(room, nil).Once()
	mockCache.On("SyncSummary", ctx, mock.MatchedBy(func(s domain.RoomSummary) bool {
		return s.RoomID == roomID && s.Version == version
	})).Return(nil).Once()
	edits.On("EnqueueEdit", ctx, mock.MatchedBy(func(r domain.EditRecord) bool {
		return r.RoomID == roomID && r.Version == version
	})).Return(nil).Once()
}

func TestMutationService_SetHexColor_SyncsCacheWithNewVersion(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()
	actor := service.Actor{DisplayName: "painter"}

	mockRepo.On("UpsertHex", ctx, "ROOM01", "3,2", "blue", "painter").Return(uint64(6), nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 6)

	version, err := svc.SetHexColor(ctx, "ROOM01", "3,2", "blue", actor)

	assert.NoError(t, err)
	assert.Equal(t, uint64(6), version)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	edits.AssertExpectations(t)
}

func TestMutationService_SetHexColor_StorageFailureLeavesCacheUntouched(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("UpsertHex", ctx, "ROOM01", "3,2", "blue", "painter").
		Return(uint64(0), errors.New("connection reset")).Once()

	_, err := svc.SetHexColor(ctx, "ROOM01", "3,2", "blue", service.Actor{DisplayName: "painter"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrStorage))
	mockCache.AssertNotCalled(t, "SyncSummary", mock.Anything, mock.Anything)
	edits.AssertNotCalled(t, "EnqueueEdit", mock.Anything, mock.Anything)
}

func TestMutationService_SetHexColor_UnknownRoom(t *testing.T) {
	svc, mockRepo, _, _ := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("UpsertHex", ctx, "GHOST9", "1,1", "red", "x").
		Return(uint64(0), repository.ErrRoomNotFound).Once()

	_, err := svc.SetHexColor(ctx, "GHOST9", "1,1", "red", service.Actor{DisplayName: "x"})
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

func TestMutationService_EraseHex_ReturnsSurvivingLines(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	survivor := domain.Line{ID: "l2", RoomID: "ROOM01", Payload: []byte(`{"id":"l2","start":{"key":"0,0"},"end":{"key":"1,1"}}`)}
	mockRepo.On("EraseHex", ctx, "ROOM01", "5,5").Return(uint64(12), []domain.Line{survivor}, nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 12)

	version, remaining, err := svc.EraseHex(ctx, "ROOM01", "5,5", service.Actor{DisplayName: "eraser"})

	assert.NoError(t, err)
	assert.Equal(t, uint64(12), version)
	require.Len(t, remaining, 1)
	assert.Equal(t, "l2", remaining[0].ID)
}

func TestMutationService_AddLine_AssignsIDWhenPayloadHasNone(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"start":{"key":"0,0"},"end":{"key":"2,2"},"color":"black"}`)
	mockRepo.On("AddLine", ctx, mock.MatchedBy(func(line *domain.Line) bool {
		return line.RoomID == "ROOM01" && line.ID != "" && line.CreatedBy == "artist"
	})).Return(uint64(2), nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 2)

	_, line, err := svc.AddLine(ctx, "ROOM01", payload, service.Actor{DisplayName: "artist"})

	assert.NoError(t, err)
	require.NotNil(t, line)
	assert.NotEmpty(t, line.ID, "server must assign an id when the client sent none")
}

func TestMutationService_AddLine_KeepsCallerSuppliedID(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"id":"line-7","start":{"key":"0,0"},"end":{"key":"2,2"}}`)
	mockRepo.On("AddLine", ctx, mock.MatchedBy(func(line *domain.Line) bool {
		return line.ID == "line-7"
	})).Return(uint64(3), nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 3)

	_, line, err := svc.AddLine(ctx, "ROOM01", payload, service.Actor{DisplayName: "artist"})

	assert.NoError(t, err)
	assert.Equal(t, "line-7", line.ID)
}

func TestMutationService_AddUnit_AssignsServerID(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("AddUnit", ctx, mock.MatchedBy(func(unit *domain.Unit) bool {
		return unit.ID != "" && unit.Name == "Lancer" && unit.HexKey == "4,4"
	})).Return(uint64(8), nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 8)

	_, unit, err := svc.AddUnit(ctx, "ROOM01", service.UnitInput{Name: "Lancer", Color: "red", HexKey: "4,4"}, service.Actor{DisplayName: "cmdr"})

	assert.NoError(t, err)
	require.NotNil(t, unit)
	assert.NotEmpty(t, unit.ID)
}

func TestMutationService_MoveUnit_ReturnsCascadedUnits(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	parentID := "u1"
	moved := []domain.Unit{
		{ID: "u1", RoomID: "ROOM01", HexKey: "9,9"},
		{ID: "u2", RoomID: "ROOM01", HexKey: "9,9", ParentUnitID: &parentID},
	}
	mockRepo.On("MoveUnit", ctx, "ROOM01", "u1", "9,9", "cmdr").Return(uint64(4), moved, nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "ROOM01", 4)

	_, got, err := svc.MoveUnit(ctx, "ROOM01", "u1", "9,9", service.Actor{DisplayName: "cmdr"})

	assert.NoError(t, err)
	require.Len(t, got, 2, "direct children move with their parent")
	assert.Equal(t, "9,9", got[1].HexKey, "child lands on the same destination cell")
}

func TestMutationService_ReparentUnit_RejectsSelfParent(t *testing.T) {
	svc, mockRepo, _, _ := newMutationService(t)
	ctx := context.Background()

	self := "u1"
	_, _, err := svc.ReparentUnit(ctx, "ROOM01", "u1", &self, service.Actor{DisplayName: "cmdr"})

	assert.True(t, errors.Is(err, service.ErrInvalidAction))
	mockRepo.AssertNotCalled(t, "ReparentUnit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationService_ReplaceState_NonOwnerRejected(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	owner := "cmdr"
	room := &domain.Room{ID: "OWNED1", OwnerUsername: &owner}
	mockRepo.On("FindRoom", ctx, "OWNED1").Return(room, nil).Once()

	_, err := svc.ReplaceState(ctx, "OWNED1", map[string]domain.HexInfo{"1,1": {FillColor: "red"}}, nil, nil, service.Actor{Username: "intruder"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrForbidden))
	mockRepo.AssertNotCalled(t, "ReplaceState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "SyncSummary", mock.Anything, mock.Anything)
	edits.AssertNotCalled(t, "EnqueueEdit", mock.Anything, mock.Anything)
}

func TestMutationService_ReplaceState_OwnerAccepted(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	owner := "cmdr"
	room := &domain.Room{ID: "OWNED1", OwnerUsername: &owner}
	mockRepo.On("FindRoom", ctx, "OWNED1").Return(room, nil).Once()
	mockRepo.On("ReplaceState", ctx, "OWNED1",
		mock.Anything, mock.AnythingOfType("[]domain.Line"), mock.AnythingOfType("[]domain.Unit"), "cmdr").
		Return(uint64(20), nil).Once()
	expectFinish(ctx, mockRepo, mockCache, edits, "OWNED1", 20)

	version, err := svc.ReplaceState(ctx, "OWNED1",
		map[string]domain.HexInfo{"1,1": {FillColor: "red"}},
		[]json.RawMessage{json.RawMessage(`{"id":"l1","start":{"key":"1,1"},"end":{"key":"2,2"}}`)},
		[]service.UnitInput{{Name: "Lancer", HexKey: "1,1"}},
		service.Actor{Username: "cmdr"})

	assert.NoError(t, err)
	assert.Equal(t, uint64(20), version)
	mockRepo.AssertExpectations(t)
}

func TestMutationService_DeleteUnit_MissingUnitIsNotAMissingRoom(t *testing.T) {
	svc, mockRepo, mockCache, _ := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("DeleteUnit", ctx, "ROOM01", "ghost").
		Return(uint64(0), repository.ErrUnitNotFound).Once()

	_, err := svc.DeleteUnit(ctx, "ROOM01", "ghost", service.Actor{DisplayName: "cmdr"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrUnitNotFound))
	assert.False(t, errors.Is(err, service.ErrRoomNotFound))
	mockCache.AssertNotCalled(t, "SyncSummary", mock.Anything, mock.Anything)
}

func TestMutationService_MoveUnit_MissingUnit(t *testing.T) {
	svc, mockRepo, _, _ := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("MoveUnit", ctx, "ROOM01", "ghost", "9,9", "cmdr").
		Return(uint64(0), []domain.Unit(nil), repository.ErrUnitNotFound).Once()

	_, _, err := svc.MoveUnit(ctx, "ROOM01", "ghost", "9,9", service.Actor{DisplayName: "cmdr"})

	assert.True(t, errors.Is(err, service.ErrUnitNotFound))
}

func TestMutationService_CacheSyncFailureDoesNotFailMutation(t *testing.T) {
	svc, mockRepo, mockCache, edits := newMutationService(t)
	ctx := context.Background()

	mockRepo.On("DeleteUnit", ctx, "ROOM01", "u9").Return(uint64(15), nil).Once()
	room := &domain.Room{ID: "ROOM01", Version: 15}
	mockRepo.On("FindRoom", ctx, "ROOM01").Return(room, nil).Once()
	mockCache.On("SyncSummary", ctx, mock.Anything).Return(errors.New("redis down")).Once()
	edits.On("EnqueueEdit", ctx, mock.Anything).Return(nil).Once()

	version, err := svc.DeleteUnit(ctx, "ROOM01", "u9", service.Actor{DisplayName: "cmdr"})

	assert.NoError(t, err, "the mutation committed; cache sync is best-effort")
	assert.Equal(t, uint64(15), version)
}
