package nats

import (
	"os"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// subjects shared by the services
const (
	SocketSubject = "socket.service"    // client requests, gateway to gamesvc
	GameSubject   = "game.service"      // replies addressed by socket id, gamesvc to gateway
	ChangesPrefix = "changes"           // row change events, changes.<scope>.<id>
	HeartbeatSubj = "service.heartbeat"
)

const defaultURL = "nats://localhost:4222"

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

// Connect dials NATS_URL (NATS_TOKEN when set), identifying the connection
// as name. It keeps reconnecting for the life of the process.
func Connect(name string) (*Nats, error) {
	n := &Nats{
		Url:   os.Getenv("NATS_URL"),
		Token: os.Getenv("NATS_TOKEN"),
	}
	if n.Url == "" {
		n.Url = defaultURL
	}

	conn, err := nats.Connect(n.Url, options(name, n.Token)...)
	if err != nil {
		return nil, err
	}
	n.Conn = conn
	return n, nil
}

func options(name, token string) []nats.Option {
	logger := log.WithField("conn", name)
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("disconnected from NATS: %s", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("reconnected to NATS %s", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Errorf("NATS async error on %s: %s", sub.Subject, err)
				return
			}
			logger.Errorf("NATS async error: %s", err)
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return opts
}
