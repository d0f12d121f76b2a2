package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/config"
	"github.com/cimillas/room-booking/internal/domain"
	"github.com/cimillas/room-booking/internal/notify"
	"github.com/cimillas/room-booking/internal/storage/memory"
	"github.com/cimillas/room-booking/internal/storage/postgres"
	transporthttp "github.com/cimillas/room-booking/internal/transport/http"
	"github.com/cimillas/room-booking/migrations"
)

const (
	shutdownTimeout = 10 * time.Second
	tokenTTL        = 24 * time.Hour
	memoryAdminID   = "admin"
)

type backend struct {
	rooms        app.RoomRepository
	reservations app.ReservationRepository
	actors       app.ActorDirectory
	healthChecks []transporthttp.HealthCheck
	// createActor is nil for the in-memory store.
	createActor func(ctx context.Context, a domain.Actor) error
	close       func()
}

func main() {
	logger := log.Default()

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "create-user" {
		if err := createUser(cfg, logger, os.Args[2:]); err != nil {
			log.Fatalf("create-user: %v", err)
		}
		return
	}

	if err := serve(cfg, logger); err != nil {
		log.Fatalf("%v", err)
	}
}

func serve(cfg config.Config, logger *log.Logger) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b, err := openBackend(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	clk := clock.NewSystem()

	hub := notify.NewHub(cfg.CORSOrigins, logger)
	sinks := notify.Multi{notify.LogSink{Logger: logger}, hub}
	if cfg.AMQPURL != "" {
		publisher, err := notify.DialAMQP(cfg.AMQPURL, cfg.EventsExchange, notify.WithPublishTimeout(cfg.PublishTimeout))
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		logger.Printf("publishing events exchange=%s", cfg.EventsExchange)
	} else {
		logger.Printf("WARN: AMQP_URL not set, events are not sent to a broker")
	}

	resSvc := app.NewReservationService(b.reservations, clk,
		app.WithLocation(cfg.Location),
		app.WithEventSink(sinks),
		app.WithPublishTimeout(cfg.PublishTimeout),
		app.WithLogger(logger),
	)
	roomSvc := app.NewRoomService(b.rooms, clk, logger)

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Reservations: resSvc,
		Rooms:        roomSvc,
		Auth:         transporthttp.NewAuthenticator(cfg.JWTSecret, b.actors, logger),
		Clock:        clk,
		Events:       hub,
		HealthChecks: b.healthChecks,
		Logger:       logger,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, router), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resSvc.StartSweeper(stopCtx, cfg.SweepInterval)

	logger.Printf("api listening on :%s storage=%s timezone=%s", cfg.Port, cfg.Storage, cfg.Location)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}
	logger.Printf("server stopped")
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (backend, error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.NewStore()
		admin := domain.Actor{ID: memoryAdminID, Name: "admin", Role: domain.RoleSuperAdmin}
		store.PutActor(admin)
		token, err := transporthttp.SignToken(cfg.JWTSecret, admin.ID, time.Now(), tokenTTL)
		if err != nil {
			return backend{}, fmt.Errorf("sign admin token: %w", err)
		}
		logger.Printf("WARN: in-memory storage, data is lost on exit; admin token=%s", token)
		return backend{
			rooms:        store,
			reservations: store,
			actors:       store,
			close:        func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return backend{}, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return backend{}, fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.ApplyWithLogger(ctx, pool, logger); err != nil {
		pool.Close()
		return backend{}, fmt.Errorf("apply migrations: %w", err)
	}

	actors := postgres.NewActorRepository(pool)
	return backend{
		rooms:        postgres.NewRoomRepository(pool),
		reservations: postgres.NewReservationRepository(pool),
		actors:       actors,
		healthChecks: []transporthttp.HealthCheck{pool.Ping},
		createActor:  actors.CreateActor,
		close:        pool.Close,
	}, nil
}

// createUser registers an actor and prints a bearer token for it.
func createUser(cfg config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(domain.RoleUser), "super_admin, admin or user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actor := domain.Actor{ID: uuid.NewString(), Name: *name, Role: domain.Role(*role)}
	if actor.Name == "" {
		return errors.New("-name is required")
	}
	if !actor.Role.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}
	if cfg.Storage == config.StorageMemory {
		return errors.New("users of the in-memory store only live inside the server process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.createActor(ctx, actor); err != nil {
		return err
	}
	token, err := transporthttp.SignToken(cfg.JWTSecret, actor.ID, time.Now(), tokenTTL)
	if err != nil {
		return err
	}
	fmt.Printf("id=%s role=%s\ntoken=%s\n", actor.ID, actor.Role, token)
	return nil
}
