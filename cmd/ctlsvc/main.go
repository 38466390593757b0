package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/npat-services/configs"
	"github.com/avvvet/npat-services/internal/archive"
	mongodb "github.com/avvvet/npat-services/internal/db"
	"github.com/avvvet/npat-services/internal/feed"
	"github.com/avvvet/npat-services/internal/gamesvc/db"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	natscli "github.com/avvvet/npat-services/internal/nats"
	"github.com/avvvet/npat-services/internal/notify"
)

const SERVICE_NAME = "ctl"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId[:8])
}

// ctlsvc closes online-match rounds whose timer ran out while neither
// client reported it, moves on matches stuck between rounds, and settles
// matches that were on their last round.
func main() {
	cfg := config.Load()

	// pg connection
	dbpool, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := natscli.Connect("npat-" + SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	var archiver service.Archiver
	if cfg.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(context.Background(), cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		if archiver, err = archive.Open(context.Background(), mdb, cfg.ArchiveRetention); err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
	}

	var notifier service.Notifier
	if tn := notify.FromConfig(cfg.TelegramToken, cfg.TelegramChats); tn != nil {
		notifier = tn
	}

	matches := service.NewMatchService(store.NewMatchStore(dbpool), store.NewAnswerStore(dbpool),
		engine.New(), feed.NewPublisher(n.Conn), archiver, notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	log.Infof("%s service checking expired rounds every %s", SERVICE_NAME, cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Infof("%s service stopped", SERVICE_NAME)
			return
		case <-ticker.C:
		}

		tickCtx, tickCancel := context.WithTimeout(ctx, cfg.TickInterval*5)
		closed, err := matches.ExpireOverdue(tickCtx, cfg.TimeUpGrace, cfg.RoundIdle)
		tickCancel()
		if err != nil {
			log.Errorf("Error [MatchService.ExpireOverdue] %v", err)
			continue
		}
		if closed > 0 {
			log.Infof("moved %d overdue matches", closed)
		}
	}
}
