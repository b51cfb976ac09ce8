// internal/app/store/waypoints/waypointstore.go
//
// Waypoints in an ordered group carry a dense index: committed indices
// are always exactly {0..N-1}. Every mutation below preserves that
// invariant, and a unique index on (group_id, index) backs it up at the
// storage level. Moves are adjacent-only swaps run in a transaction,
// with one side parked at index -1 so the swap never trips the unique
// constraint mid-flight. Moves and deletes flip the owning activity's
// unpublished-changes flag inside the same transaction.
package waypointstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trailhub/internal/app/system/txn"
	"github.com/dalemusser/trailhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// sentinelIndex is the transient slot a waypoint is parked at during a
// swap. It never survives a committed transaction.
const sentinelIndex = -1

type Store struct {
	c          *mongo.Collection
	groups     *mongo.Collection
	activities *mongo.Collection
	client     *mongo.Client
	log        *zap.Logger
}

var (
	ErrNotFound        = errors.New("waypoint not found")
	ErrNegativeIndex   = errors.New("target index must not be negative")
	ErrNonAdjacentMove = errors.New("waypoints can only move one position at a time")
	ErrIndexConflict   = errors.New("no waypoint occupies the target index")
	ErrNotOrdered      = errors.New("waypoint group is not ordered")
)

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		c:          db.Collection("waypoints"),
		groups:     db.Collection("waypoint_groups"),
		activities: db.Collection("activities"),
		client:     db.Client(),
		log:        log,
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Waypoint, error) {
	var w models.Waypoint
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Waypoint{}, ErrNotFound
		}
		return models.Waypoint{}, err
	}
	return w, nil
}

// Create inserts a waypoint. In an ordered group it is appended at the
// end (index max+1, or 0 in an empty group); in unordered and geofence
// groups it carries no index. Clients cannot choose the insertion
// position; they insert at the end and then move.
func (s *Store) Create(ctx context.Context, w models.Waypoint) (models.Waypoint, error) {
	var g models.WaypointGroup
	if err := s.groups.FindOne(ctx, bson.M{"_id": w.GroupID}).Decode(&g); err != nil {
		return models.Waypoint{}, err
	}

	now := time.Now().UTC()
	w.ID = primitive.NewObjectID()
	w.Name = strings.TrimSpace(w.Name)
	w.CreatedAt = now
	w.UpdatedAt = now

	if g.Type != models.GroupOrdered {
		w.Index = nil
		if _, err := s.c.InsertOne(ctx, w); err != nil {
			return models.Waypoint{}, err
		}
		return w, nil
	}

	// Concurrent appends race for the same slot; the unique index
	// rejects the loser and we take the next slot.
	for attempt := 0; attempt < 3; attempt++ {
		next, err := s.nextIndex(ctx, w.GroupID)
		if err != nil {
			return models.Waypoint{}, err
		}
		w.Index = &next
		_, err = s.c.InsertOne(ctx, w)
		if err == nil {
			return w, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Waypoint{}, err
		}
	}
	return models.Waypoint{}, errors.New("could not claim an append slot")
}

func (s *Store) nextIndex(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "index", Value: -1}}).
		SetProjection(bson.M{"index": 1})
	var top struct {
		Index *int `bson:"index"`
	}
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"index":    bson.M{"$gte": 0},
	}, opts).Decode(&top)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if top.Index == nil {
		return 0, nil
	}
	return *top.Index + 1, nil
}

// UpdateInfo replaces the editable fields of a waypoint. Position is
// changed only through Move.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, w models.Waypoint) error {
	set := bson.M{
		"name":              strings.TrimSpace(w.Name),
		"description":       w.Description,
		"departure_callout": w.DepartureCallout,
		"arrival_callout":   w.ArrivalCallout,
		"latitude":          w.Latitude,
		"longitude":         w.Longitude,
		"updated_at":        time.Now().UTC(),
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Move shifts a waypoint in its ordered group to targetIndex, which
// must be adjacent to its current index (a swap with one neighbor).
// Moving to the current index is a no-op, so retried requests are
// idempotent. Inside the transaction the moving waypoint is parked at
// the sentinel slot first, the neighbor takes its place, and it then
// lands on the target, keeping the unique (group_id, index) constraint
// satisfied at every step.
func (s *Store) Move(ctx context.Context, id primitive.ObjectID, targetIndex int) error {
	if targetIndex < 0 {
		return ErrNegativeIndex
	}

	w, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w.Index == nil {
		return ErrNotOrdered
	}
	cur := *w.Index

	if targetIndex == cur {
		return nil
	}
	if targetIndex != cur-1 && targetIndex != cur+1 {
		return ErrNonAdjacentMove
	}

	return txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		// The neighbor must exist; a dense sequence guarantees it for
		// any in-range target.
		var neighbor models.Waypoint
		err := s.c.FindOne(ctx, bson.M{
			"group_id": w.GroupID,
			"index":    targetIndex,
		}).Decode(&neighbor)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrIndexConflict
			}
			return err
		}

		now := time.Now().UTC()

		// Park the mover clear of the unique constraint.
		if err := s.setIndex(ctx, id, sentinelIndex, now); err != nil {
			return err
		}
		// Neighbor slides into the vacated slot.
		if err := s.setIndex(ctx, neighbor.ID, cur, now); err != nil {
			return err
		}
		// Mover lands on the target.
		if err := s.setIndex(ctx, id, targetIndex, now); err != nil {
			return err
		}
		return s.flagActivityDirty(ctx, w.GroupID, now)
	})
}

// flagActivityDirty marks the activity owning groupID as having
// unpublished changes. Called inside the same transaction as the
// reorder or delete, so the flag and the mutation commit together.
func (s *Store) flagActivityDirty(ctx context.Context, groupID primitive.ObjectID, now time.Time) error {
	var g struct {
		ActivityID primitive.ObjectID `bson:"activity_id"`
	}
	err := s.groups.FindOne(ctx, bson.M{"_id": groupID},
		options.FindOne().SetProjection(bson.M{"activity_id": 1})).Decode(&g)
	if err != nil {
		return err
	}
	_, err = s.activities.UpdateByID(ctx, g.ActivityID, bson.M{"$set": bson.M{
		"unpublished_changes": true,
		"updated_at":          now,
	}})
	return err
}

func (s *Store) setIndex(ctx context.Context, id primitive.ObjectID, index int, now time.Time) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"index":      index,
		"updated_at": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a waypoint and, in an ordered group, compacts the
// indices above it so the committed sequence stays dense. The shift
// walks upward in ascending index order; each decrement moves into a
// slot just vacated, so the unique constraint holds throughout.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	w, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if w.Index == nil {
		return txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
			if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
				return err
			}
			return s.flagActivityDirty(ctx, w.GroupID, time.Now().UTC())
		})
	}

	removed := *w.Index
	return txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return err
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "index", Value: 1}}).
			SetProjection(bson.M{"_id": 1, "index": 1})
		cur, err := s.c.Find(ctx, bson.M{
			"group_id": w.GroupID,
			"index":    bson.M{"$gt": removed},
		}, opts)
		if err != nil {
			return err
		}

		type row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Index int                `bson:"index"`
		}
		var above []row
		if err := cur.All(ctx, &above); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, r := range above {
			if err := s.setIndex(ctx, r.ID, r.Index-1, now); err != nil {
				return err
			}
		}
		return s.flagActivityDirty(ctx, w.GroupID, now)
	})
}

// DeleteByGroups removes every waypoint in the given groups (cascade
// when groups or activities are deleted). No compaction is needed since
// the groups are going away with them.
func (s *Store) DeleteByGroups(ctx context.Context, groupIDs []primitive.ObjectID) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": bson.M{"$in": groupIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByGroup returns a group's waypoints, index-sorted for ordered
// groups and insertion-sorted otherwise.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Waypoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var waypoints []models.Waypoint
	if err := cur.All(ctx, &waypoints); err != nil {
		return nil, err
	}
	return waypoints, nil
}

// IDsByGroups returns the waypoint IDs across a set of groups (used by
// cascade deletes to collect media).
func (s *Store) IDsByGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"group_id": bson.M{"$in": groupIDs}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
