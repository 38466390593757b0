package store

import (
	"context"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledger describes one Answer Ledger table; rooms key answers by roster id,
// matches by player name.
type ledger struct {
	table      string
	gameCol    string
	playerCol  string
	constraint string
}

var (
	roomLedger  = ledger{"player_answers", "room_id", "player_id", "unique_room_answer"}
	matchLedger = ledger{"online_match_answers", "match_id", "player_name", "unique_match_answer"}
)

type AnswerStore struct {
	db *pgxpool.Pool
}

func NewAnswerStore(db *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) UpsertRoomAnswers(ctx context.Context, answers []models.Answer) error {
	return s.upsert(ctx, roomLedger, answers)
}

func (s *AnswerStore) UpsertMatchAnswers(ctx context.Context, answers []models.Answer) error {
	return s.upsert(ctx, matchLedger, answers)
}

func (s *AnswerStore) CountRoomAnswers(ctx context.Context, roomID string, round int) (int, error) {
	return count(ctx, s.db, roomLedger, roomID, round)
}

func (s *AnswerStore) CountMatchAnswers(ctx context.Context, matchID string, round int) (int, error) {
	return count(ctx, s.db, matchLedger, matchID, round)
}

// GetRoomAnswers lists a room's answers; round 0 means every round.
func (s *AnswerStore) GetRoomAnswers(ctx context.Context, roomID string, round int) ([]models.Answer, error) {
	return list(ctx, s.db, roomLedger, roomID, round)
}

func (s *AnswerStore) GetMatchAnswers(ctx context.Context, matchID string, round int) ([]models.Answer, error) {
	return list(ctx, s.db, matchLedger, matchID, round)
}

// upsert writes all rows in one transaction; the natural key turns a
// re-submission into an overwrite.
func (s *AnswerStore) upsert(ctx context.Context, l ledger, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, round_number, category, answer, is_valid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT %[4]s
		DO UPDATE SET answer = EXCLUDED.answer, is_valid = EXCLUDED.is_valid, updated_at = now()
	`, l.table, l.gameCol, l.playerCol, l.constraint)

	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range answers {
			batch.Queue(query, a.GameID, a.PlayerID, a.Round, a.Category, a.Text, a.Valid)
		}

		br := tx.SendBatch(ctx, batch)
		for range answers {
			if _, err := br.Exec(); err != nil {
				br.Close()
				if code, _ := pgCode(err); code == foreignKeyViolation {
					return ErrNotFound
				}
				return fmt.Errorf("upsert %s: %w", l.table, err)
			}
		}
		return br.Close()
	})
}

func count(ctx context.Context, q querier, l ledger, gameID string, round int) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1 AND round_number = $2`, l.table, l.gameCol)
	if err := q.QueryRow(ctx, query, gameID, round).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", l.table, err)
	}
	return n, nil
}

func list(ctx context.Context, q querier, l ledger, gameID string, round int) ([]models.Answer, error) {
	query := fmt.Sprintf(`
		SELECT id, %[2]s, %[3]s, round_number, category, answer, is_valid, created_at
		FROM %[1]s
		WHERE %[2]s = $1 AND ($2 = 0 OR round_number = $2)
		ORDER BY round_number, created_at, id
	`, l.table, l.gameCol, l.playerCol)

	rows, err := q.Query(ctx, query, gameID, round)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", l.table, err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.GameID, &a.PlayerID, &a.Round, &a.Category, &a.Text, &a.Valid, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return answers, nil
}
