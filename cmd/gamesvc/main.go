package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/npat-services/configs"
	"github.com/avvvet/npat-services/internal/archive"
	mongodb "github.com/avvvet/npat-services/internal/db"
	"github.com/avvvet/npat-services/internal/feed"
	"github.com/avvvet/npat-services/internal/gamesvc/broker"
	"github.com/avvvet/npat-services/internal/gamesvc/db"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	handlers "github.com/avvvet/npat-services/internal/gamesvc/handlers"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	nats "github.com/avvvet/npat-services/internal/nats"
	"github.com/avvvet/npat-services/internal/notify"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId[:8])
}

func main() {
	cfg := config.Load()

	if err := db.Migrate(cfg.PostgresURL); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := nats.Connect("npat-" + SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	events := feed.NewPublisher(n.Conn)

	var archiver service.Archiver
	var history handlers.Archive
	if cfg.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(context.Background(), cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		a, err := archive.Open(context.Background(), mdb, cfg.ArchiveRetention)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		archiver, history = a, a
		log.Infof("archiving finished games for %s", cfg.ArchiveRetention)
	} else {
		log.Warn("MONGODB_URI not set, finished games are not archived")
	}

	var notifier service.Notifier
	if tn := notify.FromConfig(cfg.TelegramToken, cfg.TelegramChats); tn != nil {
		notifier = tn
	}

	eng := engine.New()

	roomStore := store.NewRoomStore(dbpool)
	playerStore := store.NewPlayerStore(dbpool)
	answerStore := store.NewAnswerStore(dbpool)
	matchStore := store.NewMatchStore(dbpool)
	queueStore := store.NewQueueStore(dbpool)
	walletStore := store.NewWalletStore(dbpool)

	roomService := service.NewRoomService(roomStore, playerStore, answerStore, eng, events, archiver)
	matchService := service.NewMatchService(matchStore, answerStore, eng, events, archiver, notifier)
	matchmakingService := service.NewMatchmakingService(queueStore, walletStore, eng, events).
		WithMatchSettings(cfg.MatchRounds, cfg.MatchTimer)
	walletService := service.NewWalletService(walletStore)

	// init peer message broker
	broker := broker.NewBroker(n.Conn, roomService, matchService, matchmakingService, walletService)

	// subscribe to socket service
	sub, err := broker.QueueSubscribSocketService(nats.SocketSubject, SERVICE_NAME)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	defer stopHeartbeat()
	go broker.Heartbeat(hbCtx, instanceId, 5*time.Second)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(roomService, matchService, walletService, history, cfg.JoinURL, cfg.GamePort)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.GamePort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
