// internal/app/store/media/mediastore.go
package mediastore

import (
	"context"
	"errors"
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
	ErrNotFound = errors.New("waypoint media not found")
	errBadType  = errors.New(`media type must be "image", "audio", or "video"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("waypoint_media")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.WaypointMedia, error) {
	var m models.WaypointMedia
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.WaypointMedia{}, ErrNotFound
		}
		return models.WaypointMedia{}, err
	}
	return m, nil
}

// Create records a media attachment. The blob itself is stored by the
// feature layer before this record is written; MediaPath points at it.
func (s *Store) Create(ctx context.Context, m models.WaypointMedia) (models.WaypointMedia, error) {
	if !m.Type.Valid() {
		return models.WaypointMedia{}, errBadType
	}

	next, err := s.nextIndex(ctx, m.WaypointID)
	if err != nil {
		return models.WaypointMedia{}, err
	}

	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.Index = &next
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.WaypointMedia{}, err
	}
	return m, nil
}

func (s *Store) nextIndex(ctx context.Context, waypointID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "index", Value: -1}}).
		SetProjection(bson.M{"index": 1})
	var top struct {
		Index *int `bson:"index"`
	}
	err := s.c.FindOne(ctx, bson.M{"waypoint_id": waypointID}, opts).Decode(&top)
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

// UpdateDescription sets the description (alt text for images).
func (s *Store) UpdateDescription(ctx context.Context, id primitive.ObjectID, description string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"description": description,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByWaypoint returns a waypoint's media in display order.
func (s *Store) ListByWaypoint(ctx context.Context, waypointID primitive.ObjectID) ([]models.WaypointMedia, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"waypoint_id": waypointID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var media []models.WaypointMedia
	if err := cur.All(ctx, &media); err != nil {
		return nil, err
	}
	return media, nil
}

// ListByWaypoints returns media records across many waypoints, used by
// cascade deletes to find the blobs to remove.
func (s *Store) ListByWaypoints(ctx context.Context, waypointIDs []primitive.ObjectID) ([]models.WaypointMedia, error) {
	if len(waypointIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"waypoint_id": bson.M{"$in": waypointIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var media []models.WaypointMedia
	if err := cur.All(ctx, &media); err != nil {
		return nil, err
	}
	return media, nil
}

// Delete removes a media record by ID. Returns the number of documents
// deleted (0 or 1). Blob removal is the caller's concern.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWaypoints removes all media records for the given waypoints.
func (s *Store) DeleteByWaypoints(ctx context.Context, waypointIDs []primitive.ObjectID) (int64, error) {
	if len(waypointIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"waypoint_id": bson.M{"$in": waypointIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
