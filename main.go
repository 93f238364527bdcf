package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"murmur_server/config"
	"murmur_server/middleware"
	"murmur_server/repositories"
	"murmur_server/routes"
	"murmur_server/services"
	"murmur_server/socket"

	"github.com/gorilla/mux"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence ports of one backend
type stores struct {
	users    services.UserStore
	matches  services.MatchLedger
	requests services.RequestMailbox
	rooms    services.RoomStore
	posts    services.PostStore
	close    func() error
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreBackend == config.BackendDynamo {
		log.Info("Initializing DynamoDB client...", "region", cfg.AWSRegion, "prefix", cfg.DynamoTablePrefix)
		client, err := repositories.InitializeDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		dynamo := &repositories.DynamoService{Client: client, TablePrefix: cfg.DynamoTablePrefix, Log: log}
		return &stores{
			users:    repositories.DynamoUserRepository{Dynamo: dynamo},
			matches:  repositories.DynamoMatchRepository{Dynamo: dynamo},
			requests: repositories.DynamoRequestRepository{Dynamo: dynamo},
			rooms:    repositories.DynamoRoomRepository{Dynamo: dynamo},
			posts:    repositories.DynamoPostRepository{Dynamo: dynamo},
			close:    func() error { return nil },
		}, nil
	}

	log.Info("Opening BadgerDB...", "path", cfg.BadgerPath)
	db, err := repositories.OpenBadger(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    repositories.NewBadgerUserRepository(db, log),
		matches:  repositories.NewBadgerMatchRepository(db, log),
		requests: repositories.NewBadgerRequestRepository(db, log),
		rooms:    repositories.NewBadgerRoomRepository(db, log),
		posts:    repositories.NewBadgerPostRepository(db, log),
		close:    db.Close,
	}, nil
}

func run() error {
	// 1. Configuration & Logger
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing store...")
		_ = st.close()
	}()

	// 3. Realtime relay. The socket server needs the room service and the
	// room service needs the relay, so the relay target is bound afterwards.
	verifier := middleware.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	notifier := &lateNotifier{}
	roomService := services.NewRoomService(st.rooms, notifier, log, cfg.MessagePageSize)
	socketServer := socket.NewSocketServer(verifier, roomService, log)
	var relay services.Notifier = socket.NewRelay(socketServer.Broadcaster(), log)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
		}
		redisRelay := socket.NewRedisRelay(rdb, relay, log)
		go func() {
			if err := redisRelay.Run(ctx); err != nil {
				log.Error("❌ Redis relay stopped", "error", err)
			}
		}()
		relay = redisRelay
	}
	notifier.target = relay

	// 4. Services
	matchmaking := services.NewMatchmakingService(st.users, st.matches, st.requests, roomService, notifier, log)
	profiles := services.NewUserProfileService(st.users, log)
	posts := services.NewPostService(st.posts, log)

	// 5. Routes
	r := mux.NewRouter()
	routes.RegisterRoutes(r)
	r.PathPrefix("/socket.io/").Handler(socketServer)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate(verifier, log), middleware.Timeout(cfg.RequestTimeout))
	routes.RegisterUserProfileRoutes(api, profiles, log)
	routes.RegisterMatchRoutes(api, matchmaking, log)
	routes.RegisterChatRoutes(api, roomService, log)
	routes.RegisterPostRoutes(api, posts, log)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Serve
	errChan := make(chan error, 2)
	go func() {
		if err := socketServer.Serve(); err != nil {
			errChan <- fmt.Errorf("socket.io server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting server", "port", cfg.Port, "backend", cfg.StoreBackend, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("⚠️ HTTP shutdown incomplete", "error", err)
	}
	_ = socketServer.Close()
	log.Info("Program stopped cleanly")
	return nil
}

// lateNotifier forwards to a relay bound after construction.
type lateNotifier struct {
	target services.Notifier
}

func (n *lateNotifier) Notify(ctx context.Context, event string, recipients []string, payload any) {
	if n.target == nil {
		return
	}
	n.target.Notify(ctx, event, recipients, payload)
}
