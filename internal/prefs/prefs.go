// Package prefs keeps the small amount of state a player's device remembers
// between games: their name, the buzzer toggle, onboarding and solo history.
package prefs

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KeyPlayerName     = "player_name"
	KeyBuzzerEnabled  = "buzzer_enabled"
	KeyScores         = "scores"
	KeySeenOnboarding = "seen_onboarding"
)

var ErrEmptyName = errors.New("player name is required")

// KV is the storage port behind Settings. A missing key reports ok=false.
type KV interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
	Delete(key string) error
}

type ScoreEntry struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Rounds   int       `json:"rounds"`
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
	Accuracy int       `json:"accuracy"`
}

// NewScoreEntry records a finished solo game. Every round offers four answers.
func NewScoreEntry(at time.Time, rounds, correct int) ScoreEntry {
	total := rounds * 4
	acc := 0
	if total > 0 {
		acc = int(math.Round(float64(correct) * 100 / float64(total)))
	}
	return ScoreEntry{
		ID:       uuid.NewString(),
		Date:     at.UTC(),
		Rounds:   rounds,
		Correct:  correct,
		Total:    total,
		Accuracy: acc,
	}
}

type Settings struct {
	kv KV
}

func New(kv KV) *Settings {
	return &Settings{kv: kv}
}

func (s *Settings) PlayerName() string {
	v, _ := s.kv.Get(KeyPlayerName)
	return v
}

func (s *Settings) SetPlayerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.kv.Set(KeyPlayerName, name)
}

// BuzzerEnabled defaults to true until the player turns it off.
func (s *Settings) BuzzerEnabled() bool {
	v, ok := s.kv.Get(KeyBuzzerEnabled)
	if !ok {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func (s *Settings) SetBuzzer(on bool) error {
	return s.kv.Set(KeyBuzzerEnabled, strconv.FormatBool(on))
}

func (s *Settings) SeenOnboarding() bool {
	v, _ := s.kv.Get(KeySeenOnboarding)
	return v == "true"
}

func (s *Settings) MarkOnboardingSeen() error {
	return s.kv.Set(KeySeenOnboarding, "true")
}

// Scores lists solo history, newest first.
func (s *Settings) Scores() ([]ScoreEntry, error) {
	raw, ok := s.kv.Get(KeyScores)
	if !ok || raw == "" {
		return []ScoreEntry{}, nil
	}
	var out []ScoreEntry
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Settings) AddScore(e ScoreEntry) error {
	scores, err := s.Scores()
	if err != nil {
		return err
	}
	return s.saveScores(append([]ScoreEntry{e}, scores...))
}

// DeleteScore reports whether an entry with id existed.
func (s *Settings) DeleteScore(id string) (bool, error) {
	scores, err := s.Scores()
	if err != nil {
		return false, err
	}
	kept := scores[:0]
	found := false
	for _, e := range scores {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return false, nil
	}
	return true, s.saveScores(kept)
}

func (s *Settings) ClearScores() error {
	return s.kv.Delete(KeyScores)
}

func (s *Settings) saveScores(scores []ScoreEntry) error {
	b, err := json.Marshal(scores)
	if err != nil {
		return err
	}
	return s.kv.Set(KeyScores, string(b))
}
