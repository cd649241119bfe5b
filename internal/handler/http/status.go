package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// StatusHandler serves the room status listing used by the lobby and for
// operational inspection.
type StatusHandler struct {
	roomService *service.RoomService
	cache       repository.RoomCache
}

func NewStatusHandler(roomService *service.RoomService, cache repository.RoomCache) *StatusHandler {
	return &StatusHandler{roomService: roomService, cache: cache}
}

// RoomsStatus lists every room with occupancy and activity data.
func (h *StatusHandler) RoomsStatus(c *gin.Context) {
	summaries, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	now := time.Now().UTC()
	rooms := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		count := s.UsersCount
		if n, err := h.cache.SessionCount(c.Request.Context(), s.RoomID); err == nil {
			count = n
		}
		rooms = append(rooms, gin.H{
			"room_id":              s.RoomID,
			"name":                 s.Name,
			"has_password":         s.HasPassword,
			"users_count":          count,
			"version":              s.Version,
			"created_at":           s.CreatedAt,
			"hours_since_activity": now.Sub(s.LastActivity).Hours(),
		})
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"rooms_count": len(rooms),
		"rooms":       rooms,
	})
}
