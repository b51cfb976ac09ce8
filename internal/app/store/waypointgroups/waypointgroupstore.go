// internal/app/store/waypointgroups/waypointgroupstore.go
package waypointgroupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("waypoint group not found")
	errBadType  = errors.New(`group type must be "ordered", "unordered", or "geofence"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("waypoint_groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.WaypointGroup, error) {
	var g models.WaypointGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.WaypointGroup{}, ErrNotFound
		}
		return models.WaypointGroup{}, err
	}
	return g, nil
}

// Create appends a group at the end of the activity's group list.
func (s *Store) Create(ctx context.Context, g models.WaypointGroup) (models.WaypointGroup, error) {
	if !g.Type.Valid() {
		return models.WaypointGroup{}, errBadType
	}

	next, err := s.nextIndex(ctx, g.ActivityID)
	if err != nil {
		return models.WaypointGroup{}, err
	}

	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.Name = strings.TrimSpace(g.Name)
	g.Index = next
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.WaypointGroup{}, err
	}
	return g, nil
}

func (s *Store) nextIndex(ctx context.Context, activityID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "index", Value: -1}}).
		SetProjection(bson.M{"index": 1})
	var top struct {
		Index int `bson:"index"`
	}
	err := s.c.FindOne(ctx, bson.M{"activity_id": activityID}, opts).Decode(&top)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return top.Index + 1, nil
}

// Rename updates the group's display name.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       strings.TrimSpace(name),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByActivity returns the activity's groups in display order.
func (s *Store) ListByActivity(ctx context.Context, activityID primitive.ObjectID) ([]models.WaypointGroup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"activity_id": activityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.WaypointGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// IDsByActivity returns just the group IDs for an activity (used by
// cascade deletes).
func (s *Store) IDsByActivity(ctx context.Context, activityID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"activity_id": activityID},
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

// Delete removes a group by ID. Returns the number of documents
// deleted (0 or 1). Waypoint and media cascade is the caller's concern.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByActivity removes all groups of an activity.
func (s *Store) DeleteByActivity(ctx context.Context, activityID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"activity_id": activityID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
