package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/categories"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	natsconn "github.com/avvvet/npat-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

var errBadRequest = errors.New("malformed request")

type handlerFunc func(ctx context.Context, data json.RawMessage) (interface{}, error)

type Broker struct {
	Conn        *nats.Conn
	Rooms       *service.RoomService
	Matches     *service.MatchService
	Matchmaking *service.MatchmakingService
	Wallets     *service.WalletService

	handlers map[string]handlerFunc
}

func NewBroker(nc *nats.Conn, rooms *service.RoomService, matches *service.MatchService,
	matchmaking *service.MatchmakingService, wallets *service.WalletService) *Broker {
	b := &Broker{
		Conn:        nc,
		Rooms:       rooms,
		Matches:     matches,
		Matchmaking: matchmaking,
		Wallets:     wallets,
	}
	b.handlers = map[string]handlerFunc{
		"create-room":          b.createRoom,
		"join-room":            b.joinRoom,
		"get-room":             b.getRoom,
		"start-game":           b.startGame,
		"submit-answers":       b.submitAnswers,
		"get-round-results":    b.roundResults,
		"next-round":           b.nextRound,
		"finish-game":          b.finishGame,
		"get-final-results":    b.finalResults,
		"get-wallet":           b.getWallet,
		"join-queue":           b.joinQueue,
		"queue-status":         b.queueStatus,
		"cancel-queue":         b.cancelQueue,
		"get-match":            b.getMatch,
		"submit-match-answers": b.submitMatchAnswers,
		"match-time-up":        b.matchTimeUp,
		"next-match-round":     b.nextMatchRound,
		"get-match-results":    b.matchResults,
		"get-categories":       b.getCategories,
	}
	return b
}

// request payloads
type roomReq struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	Round      int    `json:"round"`
}

type createRoomReq struct {
	HostName      string `json:"host_name"`
	TotalRounds   int    `json:"total_rounds"`
	TimerDuration int    `json:"timer_duration"`
}

type joinRoomReq struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type answersReq struct {
	RoomID     string            `json:"room_id"`
	MatchID    string            `json:"match_id"`
	PlayerName string            `json:"player_name"`
	Round      int               `json:"round"`
	Answers    map[string]string `json:"answers"`
}

type matchReq struct {
	MatchID    string `json:"match_id"`
	PlayerName string `json:"player_name"`
	Round      int    `json:"round"`
}

type queueReq struct {
	EntryID     string `json:"entry_id"`
	PlayerName  string `json:"player_name"`
	StakeAmount int    `json:"stake_amount"`
}

type walletRes struct {
	*service.WalletView
	Stakes []service.StakeOption `json:"stakes"`
}

type categoriesRes struct {
	Categories []string           `json:"categories"`
	Examples   []categories.Group `json:"examples"`
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errBadRequest
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errBadRequest
	}
	return nil
}

func (b *Broker) createRoom(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r createRoomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.CreateRoom(ctx, r.HostName, r.TotalRounds, r.TimerDuration)
}

func (b *Broker) joinRoom(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r joinRoomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	view, player, err := b.Rooms.JoinRoom(ctx, r.RoomCode, r.PlayerName)
	if err != nil {
		return nil, err
	}
	return struct {
		*service.RoomView
		Player *models.RoomPlayer `json:"player"`
	}{view, player}, nil
}

func (b *Broker) getRoom(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.GetRoom(ctx, r.RoomID)
}

func (b *Broker) startGame(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.StartGame(ctx, r.RoomID, r.PlayerName)
}

func (b *Broker) submitAnswers(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r answersReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.SubmitAnswers(ctx, r.RoomID, r.PlayerName, r.Round, r.Answers)
}

func (b *Broker) roundResults(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.RoundResults(ctx, r.RoomID, r.Round)
}

func (b *Broker) nextRound(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.AdvanceRound(ctx, r.RoomID, r.PlayerName)
}

func (b *Broker) finishGame(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.FinishGame(ctx, r.RoomID, r.PlayerName)
}

func (b *Broker) finalResults(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r roomReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Rooms.FinalResults(ctx, r.RoomID)
}

func (b *Broker) getWallet(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r queueReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	view, err := b.Wallets.Statement(ctx, r.PlayerName)
	if err != nil {
		return nil, err
	}
	stakes, err := b.Wallets.Stakes(ctx, r.PlayerName)
	if err != nil {
		return nil, err
	}
	return walletRes{WalletView: view, Stakes: stakes}, nil
}

func (b *Broker) joinQueue(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r queueReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matchmaking.Join(ctx, r.PlayerName, r.StakeAmount)
}

func (b *Broker) queueStatus(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r queueReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matchmaking.Status(ctx, r.EntryID)
}

func (b *Broker) cancelQueue(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r queueReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	if err := b.Matchmaking.Cancel(ctx, r.EntryID); err != nil {
		return nil, err
	}
	return comm.Res{Status: true}, nil
}

func (b *Broker) getMatch(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r matchReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matches.GetMatch(ctx, r.MatchID)
}

func (b *Broker) submitMatchAnswers(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r answersReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matches.SubmitAnswers(ctx, r.MatchID, r.PlayerName, r.Round, r.Answers)
}

func (b *Broker) matchTimeUp(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r matchReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matches.TimeUp(ctx, r.MatchID, r.Round)
}

func (b *Broker) nextMatchRound(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r matchReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matches.NextRound(ctx, r.MatchID, r.PlayerName)
}

func (b *Broker) matchResults(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var r matchReq
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return b.Matches.Results(ctx, r.MatchID)
}

func (b *Broker) getCategories(_ context.Context, _ json.RawMessage) (interface{}, error) {
	return categoriesRes{Categories: models.Categories, Examples: categories.Examples()}, nil
}

// Dispatch runs one request and builds the reply addressed to the same socket.
func (b *Broker) Dispatch(ctx context.Context, msg *comm.WSMessage) *comm.WSMessage {
	h, ok := b.handlers[msg.Type]
	if !ok {
		log.Warnf("unknown message type %q from socket %s", msg.Type, msg.SocketId)
		return errorReply(msg, service.CodeInvalid, "unknown request type")
	}

	res, err := h(ctx, msg.Data)
	if err != nil {
		if errors.Is(err, errBadRequest) {
			return errorReply(msg, service.CodeInvalid, err.Error())
		}
		code := service.ErrorCode(err)
		if code == service.CodeServer {
			log.Errorf("Error [Broker.%s] %s", msg.Type, err)
		}
		return errorReply(msg, code, service.ErrorMessage(err))
	}

	data, err := json.Marshal(res)
	if err != nil {
		log.Errorf("Error [Broker.%s] unable to marshal response: %s", msg.Type, err)
		return errorReply(msg, service.CodeServer, "something went wrong, please try again")
	}
	return &comm.WSMessage{Type: msg.Type + "-response", Data: data, SocketId: msg.SocketId}
}

func errorReply(req *comm.WSMessage, code, message string) *comm.WSMessage {
	data, _ := json.Marshal(comm.ErrorRes{Code: code, Message: message, Request: req.Type})
	return &comm.WSMessage{Type: "error", Data: data, SocketId: req.SocketId}
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	reply := b.Dispatch(ctx, msg)
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if msgNat.Reply != "" {
		if err := msgNat.Respond(payload); err != nil {
			log.Errorf("Error responding to %s: %s", msgNat.Reply, err)
		}
		return
	}
	b.Publish(natsconn.GameSubject, payload)
}

// consume requests as part of a queue group so replicas share the load
func (b *Broker) QueueSubscribSocketService(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Heartbeat announces this instance every interval until ctx ends.
func (b *Broker) Heartbeat(ctx context.Context, id string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		payload, err := json.Marshal(comm.ServiceHeartbeat{ID: id, Timestamp: time.Now().UTC()})
		if err == nil {
			b.Publish(natsconn.HeartbeatSubj, payload)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// game service publish message for socket service to consume
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
