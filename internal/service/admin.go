package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// HexContributor names one room's color for a cell inside an aggregated
// view.
type HexContributor struct {
	RoomID    string `json:"room_id"`
	FillColor string `json:"fillColor"`
}

// AggregatedHex is one cell of the merged overlay. FillColor is the color
// of the first enabled room that painted the cell; Contributors lists every
// enabled room that painted it, in enable order.
type AggregatedHex struct {
	FillColor    string           `json:"fillColor"`
	Contributors []HexContributor `json:"contributing_rooms"`
}

// AdminUnit is a unit as it appears in the overlay: re-identified so tokens
// from different rooms cannot collide, tagged with its source room, and
// marked read-only.
type AdminUnit struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        string  `json:"color"`
	HexKey       string  `json:"hex_key"`
	IconPath     *string `json:"icon_path,omitempty"`
	TintColor    *string `json:"tint_color,omitempty"`
	Description  *string `json:"description,omitempty"`
	ParentUnitID *string `json:"parent_unit_id,omitempty"`
	SourceRoom   string  `json:"source_room"`
	ReadOnly     bool    `json:"read_only"`
}

// RoomContentCounts summarizes how much one room contributed to a view.
type RoomContentCounts struct {
	Hexes int `json:"hexes"`
	Lines int `json:"lines"`
	Units int `json:"units"`
}

// AggregatedView is the merged state of all rooms an admin has enabled,
// built fresh from the store on every change to the enabled set.
type AggregatedView struct {
	Hexes      map[string]AggregatedHex     `json:"hex_data"`
	Lines      []json.RawMessage            `json:"lines"`
	Units      []AdminUnit                  `json:"units"`
	RoomCounts map[string]RoomContentCounts `json:"room_counts"`
	Versions   map[string]uint64            `json:"room_versions"`
}

// AdminService builds read-only aggregated overlays across rooms. It never
// writes: admin viewers observe, room members mutate.
type AdminService struct {
	roomRepo repository.RoomRepository
}

func NewAdminService(roomRepo repository.RoomRepository) *AdminService {
	if roomRepo == nil {
		panic("RoomRepository must be non-nil for AdminService")
	}
	return &AdminService{roomRepo: roomRepo}
}

// Aggregate merges the full state of the given rooms, in the order they
// were enabled. The order is the tiebreaker everywhere a cell is painted by
// more than one room, so the same enabled set in the same order always
// produces the same view. Rooms that vanished since being enabled are
// skipped.
func (s *AdminService) Aggregate(ctx context.Context, roomIDs []string) (*AggregatedView, error) {
	view := &AggregatedView{
		Hexes:      make(map[string]AggregatedHex),
		Lines:      make([]json.RawMessage, 0),
		Units:      make([]AdminUnit, 0),
		RoomCounts: make(map[string]RoomContentCounts, len(roomIDs)),
		Versions:   make(map[string]uint64, len(roomIDs)),
	}

	for _, roomID := range roomIDs {
		state, err := s.roomRepo.GetState(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				logrus.WithField("room_id", roomID).Warn("Skipping vanished room in admin aggregation")
				continue
			}
			logrus.WithError(err).WithField("room_id", roomID).Error("Storage failure during admin aggregation")
			return nil, ErrStorage
		}

		for hexKey, info := range state.HexData {
			merged, seen := view.Hexes[hexKey]
			if !seen {
				merged.FillColor = info.FillColor
			}
			merged.Contributors = append(merged.Contributors, HexContributor{
				RoomID:    roomID,
				FillColor: info.FillColor,
			})
			view.Hexes[hexKey] = merged
		}

		for _, line := range state.Lines {
			rewritten, err := rewriteLineForOverlay(roomID, line)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"room_id": roomID,
					"line_id": line.ID,
				}).Warn("Skipping undecodable line in admin aggregation")
				continue
			}
			view.Lines = append(view.Lines, rewritten)
		}

		for _, unit := range state.Units {
			view.Units = append(view.Units, overlayUnit(roomID, unit))
		}

		view.RoomCounts[roomID] = RoomContentCounts{
			Hexes: len(state.HexData),
			Lines: len(state.Lines),
			Units: len(state.Units),
		}
		view.Versions[roomID] = state.Room.Version
	}

	return view, nil
}

// overlayID namespaces an object id with its source room so objects from
// different rooms never collide inside one view.
func overlayID(roomID, originalID string) string {
	return fmt.Sprintf("%s_%s", roomID, originalID)
}

func overlayUnit(roomID string, unit domain.Unit) AdminUnit {
	out := AdminUnit{
		ID:          overlayID(roomID, unit.ID),
		Name:        unit.Name,
		Color:       unit.Color,
		HexKey:      unit.HexKey,
		IconPath:    unit.IconPath,
		TintColor:   unit.TintColor,
		Description: unit.Description,
		SourceRoom:  roomID,
		ReadOnly:    true,
	}
	if unit.ParentUnitID != nil {
		parent := overlayID(roomID, *unit.ParentUnitID)
		out.ParentUnitID = &parent
	}
	return out
}

// rewriteLineForOverlay re-identifies a line payload and tags it with its
// source room, leaving every other field of the opaque payload intact.
func rewriteLineForOverlay(roomID string, line domain.Line) (json.RawMessage, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(line.Payload, &fields); err != nil {
		return nil, err
	}
	fields["id"] = overlayID(roomID, line.ID)
	fields["source_room"] = roomID
	return json.Marshal(fields)
}
