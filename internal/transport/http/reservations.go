package http

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/domain"
)

// ReservationWorkflow is the set of state-changing reservation operations.
type ReservationWorkflow interface {
	Submit(ctx context.Context, actor domain.Actor, in app.SubmitInput) (domain.Reservation, error)
	Approve(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)
	Reject(ctx context.Context, id string, actor domain.Actor, reason string) (domain.Reservation, error)
	Cancel(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)
	Complete(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)
	Activate(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)
}

// ReservationReader is the set of read-only reservation operations.
type ReservationReader interface {
	Get(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter) ([]domain.Reservation, error)
	History(ctx context.Context, id string, actor domain.Actor) ([]domain.HistoryEntry, error)
}

type submitReservationRequest struct {
	RoomID            string `json:"room_id"`
	RequesterName     string `json:"requester_name"`
	RequesterEmail    string `json:"requester_email"`
	RequesterPhone    string `json:"requester_phone"`
	RequesterCategory string `json:"requester_category"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Purpose           string `json:"purpose"`
	Notes             string `json:"notes"`
	Attendees         int    `json:"attendees"`
}

type rejectReservationRequest struct {
	Reason string `json:"reason"`
}

type reservationResponse struct {
	ID                string     `json:"id"`
	RoomID            string     `json:"room_id"`
	RequesterID       string     `json:"requester_id"`
	RequesterName     string     `json:"requester_name"`
	RequesterEmail    string     `json:"requester_email,omitempty"`
	RequesterPhone    string     `json:"requester_phone,omitempty"`
	RequesterCategory string     `json:"requester_category"`
	Date              string     `json:"date"`
	StartTime         string     `json:"start_time"`
	EndTime           string     `json:"end_time"`
	Purpose           string     `json:"purpose"`
	Notes             string     `json:"notes,omitempty"`
	Attendees         int        `json:"attendees,omitempty"`
	State             string     `json:"state"`
	Version           int        `json:"version"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	RejectedBy        string     `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	ActivatedAt       *time.Time `json:"activated_at,omitempty"`
	CompletedBy       string     `json:"completed_by,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CancelledBy       string     `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

func newReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:                r.ID,
		RoomID:            r.RoomID,
		RequesterID:       r.RequesterID,
		RequesterName:     r.RequesterName,
		RequesterEmail:    r.RequesterEmail,
		RequesterPhone:    r.RequesterPhone,
		RequesterCategory: string(r.RequesterCategory),
		Date:              r.Date.String(),
		StartTime:         r.Start.String(),
		EndTime:           r.End.String(),
		Purpose:           r.Purpose,
		Notes:             r.Notes,
		Attendees:         r.Attendees,
		State:             string(r.State),
		Version:           r.Version,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        r.ApprovedAt,
		RejectedBy:        r.RejectedBy,
		RejectedAt:        r.RejectedAt,
		RejectionReason:   r.RejectionReason,
		ActivatedAt:       r.ActivatedAt,
		CompletedBy:       r.CompletedBy,
		CompletedAt:       r.CompletedAt,
		CancelledBy:       r.CancelledBy,
		CancelledAt:       r.CancelledAt,
	}
}

func newReservationList(rs []domain.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReservationResponse(r))
	}
	return out
}

type historyEntryResponse struct {
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	ActorID string    `json:"actor_id"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

// HandleSubmitReservation returns an HTTP handler for POST /reservations.
func HandleSubmitReservation(svc ReservationWorkflow, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req submitReservationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := svc.Submit(r.Context(), actor, app.SubmitInput{
			RoomID:            req.RoomID,
			RequesterName:     req.RequesterName,
			RequesterEmail:    req.RequesterEmail,
			RequesterPhone:    req.RequesterPhone,
			RequesterCategory: req.RequesterCategory,
			Date:              req.Date,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			Purpose:           req.Purpose,
			Notes:             req.Notes,
			Attendees:         req.Attendees,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newReservationResponse(res))
	}
}

type reservationAction func(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error)

// HandleReservationAction adapts a body-less transition such as approve or
// cancel to POST /reservations/{id}/<action>.
func HandleReservationAction(action reservationAction, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		res, err := action(r.Context(), mux.Vars(r)["id"], actor)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

// HandleRejectReservation returns an HTTP handler for POST /reservations/{id}/reject.
func HandleRejectReservation(svc ReservationWorkflow, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req rejectReservationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := svc.Reject(r.Context(), mux.Vars(r)["id"], actor, req.Reason)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

func HandleGetReservation(svc ReservationReader, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		res, err := svc.Get(r.Context(), mux.Vars(r)["id"], actor)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

// HandleListReservations serves GET /reservations with optional room_id,
// requester_id, date, date_to and comma-separated state filters.
func HandleListReservations(svc ReservationReader, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		filter, err := parseReservationFilter(r)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		rs, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationList(rs))
	}
}

func HandleReservationHistory(svc ReservationReader, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		entries, err := svc.History(r.Context(), mux.Vars(r)["id"], actor)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]historyEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, historyEntryResponse{
				From:    string(e.From),
				To:      string(e.To),
				ActorID: e.ActorID,
				Note:    e.Note,
				At:      e.At,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseReservationFilter(r *http.Request) (domain.ReservationFilter, error) {
	q := r.URL.Query()
	filter := domain.ReservationFilter{
		RoomID:      q.Get("room_id"),
		RequesterID: q.Get("requester_id"),
	}
	if raw := q.Get("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return filter, err
		}
		filter.Date = d
	}
	if raw := q.Get("date_to"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return filter, domain.NewValidationError("date_to", "expected YYYY-MM-DD")
		}
		filter.DateTo = d
	}
	if raw := q.Get("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			state := domain.State(strings.TrimSpace(s))
			if !state.Valid() {
				return filter, domain.NewValidationError("state", "unknown state "+string(state))
			}
			filter.States = append(filter.States, state)
		}
	}
	return filter, nil
}
