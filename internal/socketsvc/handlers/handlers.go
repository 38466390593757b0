package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/socketsvc/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxMessageSize = 8 << 10
	pongWait       = time.Minute
	pingPeriod     = pongWait * 9 / 10
	writeWait      = 10 * time.Second
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	alive    func(time.Time) int
	port     string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

// NewHandler takes alive, the count of game services recently heard from.
// An empty origins list accepts any origin.
func NewHandler(s *ws.Ws, alive func(time.Time) int, port string, origins []string) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		ws:    s,
		alive: alive,
		port:  port,
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || allowed[origin]
	}
}

// HandleWebSocket upgrades the request and announces the socket id; requests
// read afterwards go to the game service through ws.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("[socket.upgrade] %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn)
	log.WithField("socket", socketId).Info("connected")

	data, _ := json.Marshal(map[string]string{"socketid": socketId})
	h.ws.Send(&comm.WSMessage{Type: "connected", Data: data, SocketId: socketId})

	done := make(chan struct{})
	go h.keepAlive(socketId, done)
	go h.readLoop(conn, socketId, done)
}

func (h *Handler) keepAlive(socketId string, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			c, ok := h.ws.GetConnection(socketId)
			if !ok {
				return
			}
			if err := c.Ping(writeWait); err != nil {
				log.WithField("socket", socketId).Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

func (h *Handler) readLoop(conn *websocket.Conn, socketId string, done chan struct{}) {
	logger := log.WithField("socket", socketId)
	defer func() {
		close(done)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
		logger.Info("disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("unexpected close: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			data, _ := json.Marshal(comm.ErrorRes{Code: "invalid_request", Message: "Invalid message format"})
			h.ws.Send(&comm.WSMessage{Type: "error", Data: data, SocketId: socketId})
			continue
		}

		logger.Debugf("received %s", message.Type)
		h.ws.SocketMessage(socketId, message)
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// HealthHandler reports 503 while no game service heartbeat is fresh.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	alive := h.alive(time.Now())
	rsp := Response{
		Message: "socket service is running at port " + h.port,
		Code:    http.StatusOK,
		Data:    map[string]int{"game_services": alive, "sockets": h.ws.Count()},
	}
	if alive == 0 {
		rsp.Code = http.StatusServiceUnavailable
		rsp.Error = "no game service heartbeat"
	}
	h.CreateResponse(w, rsp)
}
