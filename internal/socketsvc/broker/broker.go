package broker

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/feed"
	natsconn "github.com/avvvet/npat-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn            *nats.Conn
	Send            func(*comm.WSMessage)
	GetScopeSockets func(scope, scopeId string) []string

	LastHeartbeatMap   sync.Map // game service id -> time of its last heartbeat
	heartbeatThreshold time.Duration
}

func NewBroker(conn *nats.Conn, fncSend func(*comm.WSMessage), fncGetScopeSockets func(string, string) []string) *Broker {
	return &Broker{
		Conn:               conn,
		Send:               fncSend,
		GetScopeSockets:    fncGetScopeSockets,
		heartbeatThreshold: time.Second * 15,
	}
}

// consume replies from game service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// SubscribeChanges fans every row change out to the sockets watching its scope.
func (b *Broker) SubscribeChanges() (*nats.Subscription, error) {
	return feed.Subscribe(b.Conn, feed.All(), b.deliverChange)
}

func (b *Broker) SubscribeHeartbeats() (*nats.Subscription, error) {
	return b.Conn.Subscribe(natsconn.HeartbeatSubj, func(m *nats.Msg) {
		var hb comm.ServiceHeartbeat
		if err := json.Unmarshal(m.Data, &hb); err != nil {
			log.Warnf("malformed heartbeat: %s", err)
			return
		}
		b.LastHeartbeatMap.Store(hb.ID, hb.Timestamp)
	})
}

// AliveServices counts game services heard from within the threshold.
func (b *Broker) AliveServices(now time.Time) int {
	alive := 0
	b.LastHeartbeatMap.Range(func(key, value any) bool {
		if now.Sub(value.(time.Time)) <= b.heartbeatThreshold {
			alive++
		} else {
			b.LastHeartbeatMap.Delete(key)
		}
		return true
	})
	return alive
}

// publish message to game service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receive message from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	if message.SocketId == "" {
		log.Warnf("dropping unaddressed %s message", message.Type)
		return
	}
	b.Send(message)
}

func (b *Broker) deliverChange(ev comm.ChangeEvent) {
	sockets := b.GetScopeSockets(ev.Scope, ev.ScopeID)
	if len(sockets) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	for _, socketId := range sockets {
		b.Send(&comm.WSMessage{Type: "change", Data: data, SocketId: socketId})
	}
}
