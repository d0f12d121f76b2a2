package http

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
)

// RoomRegistry is the minimal interface needed for room endpoints.
type RoomRegistry interface {
	CreateRoom(ctx context.Context, actor domain.Actor, in app.RoomInput) (domain.Room, error)
	UpdateRoom(ctx context.Context, actor domain.Actor, id string, in app.RoomInput) (domain.Room, error)
	SetMaintenance(ctx context.Context, actor domain.Actor, id string, on bool) (domain.Room, error)
	DisableRoom(ctx context.Context, actor domain.Actor, id string) (domain.Room, error)
	DeleteRoom(ctx context.Context, actor domain.Actor, id string) error
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, includeDisabled bool) ([]domain.Room, error)
}

// RoomInspector answers availability questions about a room.
type RoomInspector interface {
	RoomStatus(ctx context.Context, roomID string, now time.Time) (domain.RoomStatus, error)
	ListConflicts(ctx context.Context, roomID string, date domain.Date, start, end domain.TimeOfDay) ([]domain.Reservation, error)
}

type roomRequest struct {
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Location   string   `json:"location"`
	Facilities []string `json:"facilities"`
}

func (req roomRequest) input() app.RoomInput {
	return app.RoomInput{
		Name:       req.Name,
		Capacity:   req.Capacity,
		Location:   req.Location,
		Facilities: req.Facilities,
	}
}

type maintenanceRequest struct {
	On bool `json:"on"`
}

type roomResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	Location    string    `json:"location,omitempty"`
	Facilities  []string  `json:"facilities"`
	Maintenance bool      `json:"maintenance"`
	Disabled    bool      `json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newRoomResponse(room domain.Room) roomResponse {
	facilities := room.Facilities
	if facilities == nil {
		facilities = []string{}
	}
	return roomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		Location:    room.Location,
		Facilities:  facilities,
		Maintenance: room.Maintenance,
		Disabled:    room.Disabled,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

type roomStatusResponse struct {
	RoomID string    `json:"room_id"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func HandleCreateRoom(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req roomRequest
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := svc.CreateRoom(r.Context(), actor, req.input())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newRoomResponse(room))
	}
}

func HandleUpdateRoom(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req roomRequest
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := svc.UpdateRoom(r.Context(), actor, mux.Vars(r)["id"], req.input())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newRoomResponse(room))
	}
}

func HandleSetMaintenance(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req maintenanceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := svc.SetMaintenance(r.Context(), actor, mux.Vars(r)["id"], req.On)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newRoomResponse(room))
	}
}

func HandleDisableRoom(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		room, err := svc.DisableRoom(r.Context(), actor, mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newRoomResponse(room))
	}
}

func HandleDeleteRoom(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteRoom(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleGetRoom(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := svc.GetRoom(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newRoomResponse(room))
	}
}

// HandleListRooms serves GET /rooms. Disabled rooms are listed only with
// include_disabled=true.
func HandleListRooms(svc RoomRegistry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDisabled := false
		if raw := r.URL.Query().Get("include_disabled"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidQuery, "include_disabled must be a boolean")
				return
			}
			includeDisabled = v
		}
		rooms, err := svc.ListRooms(r.Context(), includeDisabled)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]roomResponse, 0, len(rooms))
		for _, room := range rooms {
			resp = append(resp, newRoomResponse(room))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleRoomStatus serves GET /rooms/{id}/status. The optional at parameter
// is an RFC 3339 instant; it defaults to the current time.
func HandleRoomStatus(svc RoomInspector, clk clock.Clock, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := clk.Now()
		if raw := r.URL.Query().Get("at"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidQuery, "at must be RFC 3339")
				return
			}
			at = parsed
		}
		roomID := mux.Vars(r)["id"]
		status, err := svc.RoomStatus(r.Context(), roomID, at)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, roomStatusResponse{RoomID: roomID, Status: string(status), At: at})
	}
}

// HandleRoomConflicts serves GET /rooms/{id}/conflicts?date=&start=&end=.
func HandleRoomConflicts(svc RoomInspector, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		date, err := domain.ParseDate(q.Get("date"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		start, err := domain.ParseTimeOfDay(q.Get("start"))
		if err != nil {
			writeServiceError(w, logger, domain.NewValidationError("start", "expected HH:MM"))
			return
		}
		end, err := domain.ParseTimeOfDay(q.Get("end"))
		if err != nil {
			writeServiceError(w, logger, domain.NewValidationError("end", "expected HH:MM"))
			return
		}
		conflicts, err := svc.ListConflicts(r.Context(), mux.Vars(r)["id"], date, start, end)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationList(conflicts))
	}
}
