// Package archive keeps summaries of finished rooms and matches in MongoDB
// for a limited time.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "game_summaries"

type Archive struct {
	coll      *mongo.Collection
	retention time.Duration
}

// Open prepares the collection and its TTL index.
func Open(ctx context.Context, database *mongo.Database, retention time.Duration) (*Archive, error) {
	if err := db.CreateTTLIndexForCollection(ctx, database, Collection); err != nil {
		return nil, fmt.Errorf("ttl index on %s: %w", Collection, err)
	}
	return &Archive{coll: database.Collection(Collection), retention: retention}, nil
}

// Save upserts summary by mode and game id so a repeated finish does not
// archive twice.
func (a *Archive) Save(ctx context.Context, summary comm.GameSummary) error {
	summary = Stamp(summary, a.retention)

	filter := bson.M{"mode": summary.Mode, "game_id": summary.GameID}
	_, err := a.coll.ReplaceOne(ctx, filter, summary, options.Replace().SetUpsert(true))
	return err
}

// Recent lists a player's archived games, newest first.
func (a *Archive) Recent(ctx context.Context, player string, limit int64) ([]comm.GameSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{"players.name": player}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []comm.GameSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stamp fills in the expiry used by the TTL index.
func Stamp(summary comm.GameSummary, retention time.Duration) comm.GameSummary {
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now().UTC()
	}
	summary.ExpiresAt = summary.FinishedAt.Add(retention)
	return summary
}
