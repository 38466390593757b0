package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	natsconn "github.com/avvvet/npat-services/internal/nats"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Publisher hands client requests to the game service.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is one websocket connection. Writes come from several goroutines
// so they are serialized here.
type Client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	limiter *rate.Limiter
}

func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Ping sends a control frame, which gorilla allows next to a concurrent writer.
func (c *Client) Ping(wait time.Duration) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait))
}

type subKey struct {
	socketId string
	scope    string
	scopeId  string
}

type Ws struct {
	connMap sync.Map // socketId -> *Client
	subMap  sync.Map // subKey -> struct{}, what each socket watches
	Broker  Publisher

	perSecond int
}

// requests forwarded to the game service as they are
var forwarded = map[string]bool{
	"create-room": true, "join-room": true, "get-room": true, "start-game": true,
	"submit-answers": true, "get-round-results": true, "next-round": true, "finish-game": true,
	"get-final-results": true, "get-wallet": true, "join-queue": true, "queue-status": true,
	"cancel-queue": true, "get-match": true, "submit-match-answers": true, "match-time-up": true,
	"next-match-round": true, "get-match-results": true, "get-categories": true,
}

// NewWs allows each connection perSecond messages per second with bursts of
// twice that.
func NewWs(perSecond int) *Ws {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Ws{perSecond: perSecond}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	c, ok := s.GetConnection(socketId)
	if !ok {
		return
	}
	if !c.limiter.Allow() {
		s.replyError(socketId, message.Type, "rate_limited", "too many messages, slow down")
		return
	}

	switch {
	case message.Type == "subscribe":
		s.handleSubscribe(socketId, message, true)
	case message.Type == "unsubscribe":
		s.handleSubscribe(socketId, message, false)
	case forwarded[message.Type]:
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
		s.replyError(socketId, message.Type, "invalid_request", "unknown request type")
	}
}

func (s *Ws) handleSubscribe(socketId string, msg *comm.WSMessage, on bool) {
	var sub comm.Subscription
	if err := json.Unmarshal(msg.Data, &sub); err != nil || sub.ScopeID == "" {
		s.replyError(socketId, msg.Type, "invalid_request", "malformed subscription")
		return
	}
	switch sub.Scope {
	case comm.ScopeRoom, comm.ScopeMatch, comm.ScopeQueue:
	default:
		s.replyError(socketId, msg.Type, "invalid_request", "unknown scope")
		return
	}

	key := subKey{socketId: socketId, scope: sub.Scope, scopeId: sub.ScopeID}
	if on {
		s.subMap.Store(key, struct{}{})
	} else {
		s.subMap.Delete(key)
	}

	data, _ := json.Marshal(sub)
	s.Send(&comm.WSMessage{Type: msg.Type + "-response", Data: data, SocketId: socketId})
}

func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	// Update message with socket ID
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := s.Broker.Publish(natsconn.SocketSubject, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", natsconn.SocketSubject, err)
		s.replyError(socketId, msg.Type, "server_error", "game service unavailable")
		return
	}

	log.Debugf("forwarded %s from socket %s", msg.Type, socketId)
}

func (s *Ws) replyError(socketId, request, code, message string) {
	data, _ := json.Marshal(comm.ErrorRes{Code: code, Message: message, Request: request})
	s.Send(&comm.WSMessage{Type: "error", Data: data, SocketId: socketId})
}

// Send writes m to the socket it is addressed to, if still connected.
func (s *Ws) Send(m *comm.WSMessage) {
	if c, ok := s.GetConnection(m.SocketId); ok {
		if err := c.WriteJSON(m); err != nil {
			log.Warnf("write to socket %s failed: %s", m.SocketId, err)
		}
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &Client{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(s.perSecond), 2*s.perSecond),
	})
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

// GetScopeSockets lists the sockets watching one room, match or queue.
func (s *Ws) GetScopeSockets(scope, scopeId string) []string {
	var sockets []string
	s.subMap.Range(func(key, _ interface{}) bool {
		k := key.(subKey)
		if k.scope == scope && k.scopeId == scopeId {
			sockets = append(sockets, k.socketId)
		}
		return true // continue iterating
	})
	return sockets
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.subMap.Range(func(key, _ interface{}) bool {
		if key.(subKey).socketId == socketId {
			s.subMap.Delete(key)
		}
		return true
	})
}

func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
