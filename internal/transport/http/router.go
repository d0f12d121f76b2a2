package http

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cimillas/room-booking/internal/clock"
)

// ReservationAPI is everything the router needs from the reservation service.
type ReservationAPI interface {
	ReservationWorkflow
	ReservationReader
	RoomInspector
}

type RouterConfig struct {
	Reservations ReservationAPI
	Rooms        RoomRegistry
	Auth         *Authenticator
	Clock        clock.Clock
	// Events is served unauthenticated at /events when set.
	Events       http.Handler
	HealthChecks []HealthCheck
	Logger       *log.Logger
}

// NewRouter wires every endpoint. Everything except /health and /events
// requires a bearer token.
func NewRouter(cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	res := cfg.Reservations
	rooms := cfg.Rooms

	r := mux.NewRouter()
	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = MethodNotAllowedHandler()

	r.HandleFunc("/health", HealthHandler(cfg.HealthChecks...)).Methods(http.MethodGet)
	if cfg.Events != nil {
		r.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(cfg.Auth.Middleware)

	api.HandleFunc("/reservations", HandleSubmitReservation(res, logger)).Methods(http.MethodPost)
	api.HandleFunc("/reservations", HandleListReservations(res, logger)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", HandleGetReservation(res, logger)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}/history", HandleReservationHistory(res, logger)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}/approve", HandleReservationAction(res.Approve, logger)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}/reject", HandleRejectReservation(res, logger)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}/cancel", HandleReservationAction(res.Cancel, logger)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}/activate", HandleReservationAction(res.Activate, logger)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}/complete", HandleReservationAction(res.Complete, logger)).Methods(http.MethodPost)

	api.HandleFunc("/rooms", HandleListRooms(rooms, logger)).Methods(http.MethodGet)
	api.HandleFunc("/rooms", HandleCreateRoom(rooms, logger)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}", HandleGetRoom(rooms, logger)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", HandleUpdateRoom(rooms, logger)).Methods(http.MethodPut)
	api.HandleFunc("/rooms/{id}", HandleDeleteRoom(rooms, logger)).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{id}/maintenance", HandleSetMaintenance(rooms, logger)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/disable", HandleDisableRoom(rooms, logger)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/status", HandleRoomStatus(res, cfg.Clock, logger)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/conflicts", HandleRoomConflicts(res, logger)).Methods(http.MethodGet)

	return r
}
