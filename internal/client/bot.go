package client

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/categories"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	log "github.com/sirupsen/logrus"
)

// Feed is where a player learns that the thing it watches changed.
type Feed interface {
	Attach(scope, scopeID string) error
	Changed() <-chan struct{}
}

var errNothingAffordable = errors.New("no stake is affordable")

// Bot plays online matches like any client: it joins the queue, watches the
// match, counts down locally from round_started_at and reports time up once
// per round.
type Bot struct {
	Name  string
	Skill float64 // chance of knowing a word for a category
	Tick  time.Duration

	req  Requester
	feed Feed
	now  func() time.Time
	rnd  *rand.Rand

	guard    *engine.SubmitGuard
	answered map[int]bool
	advanced map[int]bool
	submitAt map[int]time.Time
}

func NewBot(name string, req Requester, feed Feed, seed uint64) *Bot {
	return &Bot{
		Name:  name,
		Skill: 0.7,
		Tick:  500 * time.Millisecond,
		req:   req,
		feed:  feed,
		now:   time.Now,
		rnd:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// PickStake chooses the highest stake the bot can still afford.
func (b *Bot) PickStake(ctx context.Context) (int, error) {
	var wallet struct {
		Stakes []service.StakeOption `json:"stakes"`
	}
	if err := b.req.Request(ctx, "get-wallet", map[string]string{"player_name": b.Name}, &wallet); err != nil {
		return 0, err
	}
	best := 0
	for _, s := range wallet.Stakes {
		if s.Affordable && s.Amount > best {
			best = s.Amount
		}
	}
	if best == 0 {
		return 0, errNothingAffordable
	}
	return best, nil
}

// FindMatch queues at stake and waits until paired. Leaving early cancels
// the queue entry.
func (b *Bot) FindMatch(ctx context.Context, stake int) (string, error) {
	var st service.QueueStatus
	err := b.req.Request(ctx, "join-queue", map[string]interface{}{"player_name": b.Name, "stake_amount": stake}, &st)
	if err != nil {
		return "", err
	}
	if err := b.feed.Attach(comm.ScopeQueue, strconv.Itoa(stake)); err != nil {
		return "", err
	}

	for st.Entry.Status != models.QueueMatched || st.Entry.MatchID == nil {
		select {
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.req.Request(cancelCtx, "cancel-queue", map[string]string{"entry_id": st.Entry.ID}, nil); err != nil {
				log.Warnf("%s could not leave the queue: %s", b.Name, err)
			}
			return "", ctx.Err()
		case <-b.feed.Changed():
		case <-time.After(5 * time.Second):
		}

		if err := b.req.Request(ctx, "queue-status", map[string]string{"entry_id": st.Entry.ID}, &st); err != nil {
			return "", err
		}
	}
	return *st.Entry.MatchID, nil
}

// Play follows the match until it finishes and returns the final state.
func (b *Bot) Play(ctx context.Context, matchID string) (*models.Match, error) {
	b.guard = &engine.SubmitGuard{}
	b.answered = map[int]bool{}
	b.advanced = map[int]bool{}
	b.submitAt = map[int]time.Time{}

	if err := b.feed.Attach(comm.ScopeMatch, matchID); err != nil {
		return nil, err
	}

	view, err := b.fetch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(b.Tick)
	defer ticker.Stop()
	ticks := 0

	for {
		next, done, err := b.step(ctx, view)
		if err != nil {
			return nil, err
		}
		view = next
		if done {
			return view.Match, nil
		}

		refetch := false
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.feed.Changed():
			refetch = true
		case <-ticker.C:
			ticks++
			refetch = ticks%10 == 0
		}
		if refetch {
			if view, err = b.fetch(ctx, matchID); err != nil {
				return nil, err
			}
		}
	}
}

// step acts on the latest known state and returns the state after acting.
func (b *Bot) step(ctx context.Context, view *service.MatchView) (*service.MatchView, bool, error) {
	m := view.Match
	round := m.CurrentRound

	switch m.Status {
	case models.StatusFinished:
		return view, true, nil

	case models.StatusPlaying:
		now := b.now()
		// nothing is sent for a round already reported as timed out
		if !b.answered[round] && b.guard.State(round) == engine.Pending && !now.Before(b.answerTime(m)) {
			b.answered[round] = true
			next, err := b.act(ctx, "submit-match-answers", map[string]interface{}{
				"match_id": m.ID, "player_name": b.Name, "round": round, "answers": b.Answers(m.CurrentLetter, m.Categories),
			})
			return b.orRefetch(ctx, view, next, err)
		}
		if engine.Remaining(m.RoundState, now) == 0 && b.guard.TryFire(round) {
			next, err := b.act(ctx, "match-time-up", map[string]interface{}{"match_id": m.ID, "round": round})
			return b.orRefetch(ctx, view, next, err)
		}

	case models.StatusRoundComplete:
		if !b.advanced[round] {
			b.advanced[round] = true
			next, err := b.act(ctx, "next-match-round", map[string]interface{}{"match_id": m.ID, "player_name": b.Name})
			return b.orRefetch(ctx, view, next, err)
		}
	}
	return view, false, nil
}

// orRefetch treats conflicts as a sign the match moved on without us.
func (b *Bot) orRefetch(ctx context.Context, view, next *service.MatchView, err error) (*service.MatchView, bool, error) {
	if err == nil {
		return next, next.Match.Status == models.StatusFinished, nil
	}
	if HasCode(err, service.CodeConflict) {
		log.Infof("%s: %s, reloading", b.Name, err)
		fresh, ferr := b.fetch(ctx, view.Match.ID)
		if ferr != nil {
			return nil, false, ferr
		}
		return fresh, fresh.Match.Status == models.StatusFinished, nil
	}
	return nil, false, err
}

func (b *Bot) act(ctx context.Context, typ string, payload interface{}) (*service.MatchView, error) {
	var v service.MatchView
	if err := b.req.Request(ctx, typ, payload, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *Bot) fetch(ctx context.Context, matchID string) (*service.MatchView, error) {
	return b.act(ctx, "get-match", map[string]string{"match_id": matchID})
}

// answerTime is when the bot submits this round, somewhere in the first
// two thirds of the timer.
func (b *Bot) answerTime(m *models.Match) time.Time {
	if at, ok := b.submitAt[m.CurrentRound]; ok {
		return at
	}
	start := b.now()
	if m.RoundStartedAt != nil {
		start = *m.RoundStartedAt
	}
	window := time.Duration(m.TimerDuration) * time.Second * 2 / 3
	think := time.Duration(0)
	if window > 0 {
		think = time.Duration(b.rnd.Int64N(int64(window)))
	}
	at := start.Add(think)
	b.submitAt[m.CurrentRound] = at
	return at
}

// Answers fills the categories the bot "knows" from the category pool.
func (b *Bot) Answers(letter string, cats []string) map[string]string {
	out := make(map[string]string, len(cats))
	for _, c := range cats {
		if b.rnd.Float64() >= b.Skill {
			continue
		}
		if w, ok := categories.WordFor(c, letter); ok {
			out[c] = w
		}
	}
	return out
}
