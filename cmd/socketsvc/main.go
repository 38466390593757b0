package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/avvvet/npat-services/internal/nats"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/npat-services/configs"

	"github.com/avvvet/npat-services/internal/socketsvc/broker"
	"github.com/avvvet/npat-services/internal/socketsvc/handlers"
	"github.com/avvvet/npat-services/internal/socketsvc/routes"
	"github.com/avvvet/npat-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId[:8])
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		log.Errorf("%s service stopped: %v", SERVICE_NAME, err)
		os.Exit(1)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func run(ctx context.Context, cfg config.Config) error {
	n, err := nats.Connect("npat-" + SERVICE_NAME + "-" + instanceId)
	if err != nil {
		return err
	}
	defer n.Conn.Drain()
	log.Infof("NATS connection established %s", n.Url)

	s := ws.NewWs(cfg.SocketRate)
	b := broker.NewBroker(n.Conn, s.Send, s.GetScopeSockets)
	s.Broker = b

	// replies, change events and heartbeats all fan in to the broker
	var subs []*natsgo.Subscription
	for _, subscribe := range []func() (*natsgo.Subscription, error){
		func() (*natsgo.Subscription, error) { return b.Subscribe(nats.GameSubject) },
		b.SubscribeChanges,
		b.SubscribeHeartbeats,
	} {
		sub, err := subscribe()
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(config.CORS(cfg.CORSOrigins).Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))

	h := handlers.NewHandler(s, b.AliveServices, cfg.SocketPort, cfg.CORSOrigins)
	routes.SetRoutes(r, h, cfg.UpgradeLimit)

	server := &http.Server{
		Addr:        ":" + cfg.SocketPort,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
