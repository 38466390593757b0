package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	config "github.com/avvvet/npat-services/configs"
	"github.com/avvvet/npat-services/internal/client"
	natscli "github.com/avvvet/npat-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "robot"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId[:8])
}

// Robot names - mix of first names only and first+last names
var robotNames = []string{
	"Abelo", "meron bekele", "dawit", "mulugeta", "ted",
	"yonas", "liya", "Bereket Alemu", "Eden", "Samuel Yimer",
}

func main() {
	count := 2
	if v, err := strconv.Atoi(os.Getenv("ROBOT_COUNT")); err == nil && v > 0 && v <= len(robotNames) {
		count = v
	}

	// Connect to NATS
	nc, err := natscli.Connect("npat-" + SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Conn.Close()
	log.Infof("NATS connected at %s", nc.Url)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req := client.NewNatsRequester(nc.Conn, 10*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := client.NewWatcher(nc.Conn)
			defer w.Close()
			runRobot(ctx, client.NewBot(robotNames[i], req, w, uint64(time.Now().UnixNano())+uint64(i)))
		}(i)
	}

	log.Infof("%d robots playing", count)
	wg.Wait()
	log.Infof("%s service stopped", SERVICE_NAME)
}

// runRobot plays match after match until ctx ends or the robot is broke.
func runRobot(ctx context.Context, bot *client.Bot) {
	for ctx.Err() == nil {
		stake, err := bot.PickStake(ctx)
		if err != nil {
			log.Warnf("robot %s retires: %v", bot.Name, err)
			return
		}

		matchID, err := bot.FindMatch(ctx, stake)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Errorf("robot %s could not find a match: %v", bot.Name, err)
				pause(ctx, 10*time.Second)
			}
			continue
		}
		log.Infof("robot %s joined match %s at stake %d", bot.Name, matchID, stake)

		m, err := bot.Play(ctx, matchID)
		if err != nil {
			log.Errorf("robot %s stopped playing %s: %v", bot.Name, matchID, err)
			continue
		}

		winner := "nobody"
		if m.WinnerName != nil {
			winner = *m.WinnerName
		}
		log.Infof("robot %s finished match %s, winner %s", bot.Name, matchID, winner)

		// a short break so humans get a chance at the queue
		pause(ctx, time.Duration(5+rand.IntN(25))*time.Second)
	}
}

func pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
