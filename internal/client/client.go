// Package client talks to the game service the way any player does:
// request/reply over NATS plus the change feed.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	natsconn "github.com/avvvet/npat-services/internal/nats"
	"github.com/nats-io/nats.go"
)

// Requester sends one request and decodes the reply into out.
type Requester interface {
	Request(ctx context.Context, typ string, payload, out interface{}) error
}

// RemoteError is an error reply from the game service.
type RemoteError struct {
	comm.ErrorRes
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Request, e.Message, e.Code)
}

// HasCode reports whether err is a RemoteError with code.
func HasCode(err error, code string) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == code
}

type NatsRequester struct {
	conn    *nats.Conn
	timeout time.Duration
}

func NewNatsRequester(nc *nats.Conn, timeout time.Duration) *NatsRequester {
	return &NatsRequester{conn: nc, timeout: timeout}
}

func (r *NatsRequester) Request(ctx context.Context, typ string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	body, err := json.Marshal(comm.WSMessage{Type: typ, Data: data})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg, err := r.conn.RequestWithContext(ctx, natsconn.SocketSubject, body)
	if err != nil {
		return fmt.Errorf("%s: %w", typ, err)
	}
	return decodeReply(typ, msg.Data, out)
}

func decodeReply(typ string, raw []byte, out interface{}) error {
	var reply comm.WSMessage
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("%s: malformed reply: %w", typ, err)
	}
	if reply.Type == "error" {
		re := &RemoteError{}
		if err := json.Unmarshal(reply.Data, &re.ErrorRes); err != nil {
			return fmt.Errorf("%s: malformed error reply: %w", typ, err)
		}
		return re
	}
	if reply.Type != typ+"-response" {
		return fmt.Errorf("%s: unexpected reply %s", typ, reply.Type)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(reply.Data, out)
}
