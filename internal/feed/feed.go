// Package feed carries row change notifications over NATS. Events say only
// that a row changed; subscribers re-fetch whatever they display.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/npat-services/internal/comm"
	natsconn "github.com/avvvet/npat-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Subject is the NATS subject for one scope, e.g. changes.room.<id> or
// changes.queue.50.
func Subject(scope, scopeID string) string {
	return fmt.Sprintf("%s.%s.%s", natsconn.ChangesPrefix, scope, scopeID)
}

// All matches every change event.
func All() string {
	return natsconn.ChangesPrefix + ".>"
}

// ParseSubject splits a change subject back into scope and id.
func ParseSubject(subject string) (scope, scopeID string, ok bool) {
	parts := strings.SplitN(subject, ".", 3)
	if len(parts) != 3 || parts[0] != natsconn.ChangesPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{conn: nc}
}

func (p *Publisher) PublishChange(ev comm.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return p.conn.Publish(Subject(ev.Scope, ev.ScopeID), payload)
}

// Subscribe delivers every change under subject to fn. Undecodable
// messages are logged and dropped.
func Subscribe(nc *nats.Conn, subject string, fn func(comm.ChangeEvent)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(m *nats.Msg) {
		ev, err := decodeChange(m)
		if err != nil {
			log.Warnf("dropping change on %s: %s", m.Subject, err)
			return
		}
		fn(ev)
	})
}

// decodeChange takes scope and id from the subject the event arrived on.
func decodeChange(m *nats.Msg) (comm.ChangeEvent, error) {
	var ev comm.ChangeEvent
	scope, scopeID, ok := ParseSubject(m.Subject)
	if !ok {
		return ev, errors.New("not a change subject")
	}
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		return ev, fmt.Errorf("malformed change: %w", err)
	}
	ev.Scope, ev.ScopeID = scope, scopeID
	return ev, nil
}
