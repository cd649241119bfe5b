package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// Actor identifies who is performing an operation: the authenticated
// username (empty for anonymous participants), the display name shown to
// other room members, and the admin flag.
type Actor struct {
	Username    string
	DisplayName string
	IsAdmin     bool
}

// Name returns the identity recorded in the store: the authenticated
// username when there is one, the display name otherwise.
func (a Actor) Name() string {
	if a.Username != "" {
		return a.Username
	}
	return a.DisplayName
}

// RoomService owns room lifecycle: creation with collision-checked codes,
// password-gated joins, membership bookkeeping and listing.
type RoomService struct {
	roomRepo repository.RoomRepository
	cache    repository.RoomCache
}

func NewRoomService(roomRepo repository.RoomRepository, cache repository.RoomCache) *RoomService {
	if roomRepo == nil || cache == nil {
		panic("RoomRepository and RoomCache must be non-nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, cache: cache}
}

// CreateRoom creates a room with a fresh unique code. An authenticated
// creator becomes the owner; anonymous rooms have none. A non-empty
// password is bcrypt-hashed before storage.
func (s *RoomService) CreateRoom(ctx context.Context, name string, actor Actor, password string) (*domain.RoomState, error) {
	logCtx := logrus.WithField("creator", actor.Name())

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unnamed Room"
	}

	roomID, err := s.generateUniqueRoomCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique room code")
		return nil, ErrStorage
	}
	logCtx = logCtx.WithField("room_id", roomID)

	var passwordHash string
	if password != "" {
		passwordHash, err = HashPassword(password)
		if err != nil {
			logCtx.WithError(err).Error("Failed to hash room password")
			return nil, ErrStorage
		}
	}

	now := time.Now().UTC()
	room := &domain.Room{
		ID:           roomID,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		LastActivity: now,
		Version:      1,
	}
	if actor.Username != "" {
		owner := actor.Username
		room.OwnerUsername = &owner
	}

	if err := s.roomRepo.CreateRoom(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrStorage
	}
	s.syncCache(ctx, room)

	logCtx.Info("Room created")
	return &domain.RoomState{
		Room:    *room,
		HexData: make(map[string]domain.HexInfo),
	}, nil
}

// JoinRoom validates the password, touches activity and returns the full
// room snapshot for the joining session.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, password string) (*domain.RoomState, error) {
	logCtx := logrus.WithField("room_id", roomID)

	room, err := s.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room for join")
		return nil, ErrStorage
	}

	if room.HasPassword() && !CheckPassword(password, room.PasswordHash) {
		logCtx.Warn("Join rejected: invalid room password")
		return nil, ErrInvalidPassword
	}

	if err := s.roomRepo.TouchActivity(ctx, roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to touch room activity on join")
	} else {
		room.LastActivity = time.Now().UTC()
	}
	s.syncCache(ctx, room)

	state, err := s.roomRepo.GetState(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load room state for join")
		return nil, ErrStorage
	}
	return state, nil
}

// GetState returns the full room snapshot (used for resyncs and the admin
// aggregation engine).
func (s *RoomService) GetState(ctx context.Context, roomID string) (*domain.RoomState, error) {
	state, err := s.roomRepo.GetState(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room state")
		return nil, ErrStorage
	}
	return state, nil
}

// TouchActivity refreshes last-activity on membership changes.
func (s *RoomService) TouchActivity(ctx context.Context, roomID string) {
	if err := s.roomRepo.TouchActivity(ctx, roomID); err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to touch room activity")
	}
}

// DeleteRoom removes a room and all of its map state.
//
// An admin deletes unconditionally. The owner may delete only while at most
// one participant (themselves) is connected. Anonymous rooms have no owner;
// their sole participant may delete them under the same occupancy rule.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string, actor Actor, liveParticipants int) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "actor": actor.Name()})

	room, err := s.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room for delete")
		return ErrStorage
	}

	if !actor.IsAdmin {
		if room.OwnerUsername != nil && !room.OwnedBy(actor.Username) {
			logCtx.Warn("Delete rejected: not the room owner")
			return ErrForbidden
		}
		if liveParticipants > 1 {
			logCtx.Warn("Delete rejected: other users present")
			return ErrRoomNotEmpty
		}
	}

	if err := s.roomRepo.DeleteRoom(ctx, roomID); err != nil {
		logCtx.WithError(err).Error("Failed to delete room")
		return ErrStorage
	}
	if err := s.cache.Remove(ctx, roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to drop room cache entry after delete")
	}

	logCtx.Info("Room deleted")
	return nil
}

// ListRooms serves the room listing from the cache, falling back to the
// store and lazily populating the cache for rooms it has not seen.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	cached, err := s.cache.ListSummaries(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Room cache listing failed, falling back to store")
		cached = nil
	}
	seen := make(map[string]bool, len(cached))
	for _, summary := range cached {
		seen[summary.RoomID] = true
	}

	rooms, err := s.roomRepo.ListRooms(ctx)
	if err != nil {
		// The cache alone is better than nothing for a listing path.
		if len(cached) > 0 {
			logrus.WithError(err).Warn("Store listing failed, serving cached summaries only")
			return sortSummaries(cached), nil
		}
		logrus.WithError(err).Error("Failed to list rooms")
		return nil, ErrStorage
	}

	summaries := cached
	for i := range rooms {
		if seen[rooms[i].ID] {
			continue
		}
		s.syncCache(ctx, &rooms[i])
		summary := rooms[i].Summary()
		if count, err := s.cache.SessionCount(ctx, rooms[i].ID); err == nil {
			summary.UsersCount = count
		}
		summaries = append(summaries, summary)
	}
	return sortSummaries(summaries), nil
}

// syncCache mirrors a confirmed room row into the cache, best-effort.
func (s *RoomService) syncCache(ctx context.Context, room *domain.Room) {
	if err := s.cache.SyncSummary(ctx, room.Summary()); err != nil {
		logrus.WithError(err).WithField("room_id", room.ID).Warn("Failed to sync room cache")
	}
}

func sortSummaries(summaries []domain.RoomSummary) []domain.RoomSummary {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries
}

const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const roomCodeLength = 6

// generateUniqueRoomCode draws 6-character codes and retries on collision
// against the store (not the cache) before accepting one.
func (s *RoomService) generateUniqueRoomCode(ctx context.Context) (string, error) {
	const maxAttempts = 10
	buf := make([]byte, roomCodeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate random bytes: %w", err)
		}
		for i := range buf {
			buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		code := string(buf)

		exists, err := s.roomRepo.RoomExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("room_id", code).Warnf("Generated room code already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", maxAttempts)
}
