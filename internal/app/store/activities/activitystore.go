// internal/app/store/activities/activitystore.go
package activitystore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trailhub/internal/app/system/txn"
	"github.com/dalemusser/trailhub/internal/domain/models"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Names of the waypoint groups created with every activity. The ordered
// "Default" group is the route; "Points of Interest" holds unsequenced
// stops.
const (
	DefaultGroupName = "Default"
	POIGroupName     = "Points of Interest"
)

type Store struct {
	c      *mongo.Collection
	groups *mongo.Collection
	client *mongo.Client
	log    *zap.Logger
}

var ErrNotFound = errors.New("activity not found")

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("activities"),
		groups: db.Collection("waypoint_groups"),
		client: db.Client(),
		log:    log,
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Activity, error) {
	var a models.Activity
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Activity{}, ErrNotFound
		}
		return models.Activity{}, err
	}
	return a, nil
}

// Create inserts an activity together with its two default waypoint
// groups in one transaction, so no activity is ever observed without
// them. New activities start with unpublished changes.
func (s *Store) Create(ctx context.Context, a models.Activity) (models.Activity, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Name = strings.TrimSpace(a.Name)
	a.NameCI = text.Fold(a.Name)
	if a.Type == "" {
		a.Type = models.ActivityGuidedTour
	}
	a.UnpublishedChanges = true
	a.LastPublished = nil
	a.CreatedAt = now
	a.UpdatedAt = now

	defaultGroup := models.WaypointGroup{
		ID:         primitive.NewObjectID(),
		ActivityID: a.ID,
		Name:       DefaultGroupName,
		Type:       models.GroupOrdered,
		Index:      0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	poiGroup := models.WaypointGroup{
		ID:         primitive.NewObjectID(),
		ActivityID: a.ID,
		Name:       POIGroupName,
		Type:       models.GroupUnordered,
		Index:      1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, a); err != nil {
			return err
		}
		_, err := s.groups.InsertMany(ctx, []interface{}{defaultGroup, poiGroup})
		return err
	})
	if err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// UpdateInfo replaces the editable fields of an activity and marks it
// dirty. It does not touch publication state beyond the dirty flag.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, a models.Activity) error {
	a.Name = strings.TrimSpace(a.Name)
	set := bson.M{
		"name":                a.Name,
		"name_ci":             text.Fold(a.Name),
		"description":         a.Description,
		"type":                a.Type,
		"locale":              a.Locale,
		"start":               a.Start,
		"end":                 a.End,
		"expires":             a.Expires,
		"image_alt":           a.ImageAlt,
		"unpublished_changes": true,
		"updated_at":          time.Now().UTC(),
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

// SetFolder moves the activity into a folder, or out of any folder when
// folderID is nil. Authorization is the caller's concern.
func (s *Store) SetFolder(ctx context.Context, id primitive.ObjectID, folderID *primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"folder_id":           folderID,
		"unpublished_changes": true,
		"updated_at":          time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetImage records the stored cover image path.
func (s *Store) SetImage(ctx context.Context, id primitive.ObjectID, imagePath, imageAlt string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"image_path":          imagePath,
		"image_alt":           imageAlt,
		"unpublished_changes": true,
		"updated_at":          time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDirty sets the unpublished-changes flag. Every write path that
// touches the activity or its descendant entities calls this; it is
// cleared only by Publish.
func (s *Store) MarkDirty(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"unpublished_changes": true,
		"updated_at":          time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Publish clears the dirty flag and stamps the publication time.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID) (models.Activity, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.Activity
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"unpublished_changes": false,
		"last_published":      now,
		"updated_at":          now,
	}}, opts).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Activity{}, ErrNotFound
		}
		return models.Activity{}, err
	}
	return a, nil
}

// ListByFolder returns activities in a folder, name-sorted. folderID
// nil returns activities that are in no folder.
func (s *Store) ListByFolder(ctx context.Context, folderID *primitive.ObjectID) ([]models.Activity, error) {
	filter := bson.M{"folder_id": nil}
	if folderID != nil {
		filter["folder_id"] = *folderID
	}
	return s.list(ctx, filter)
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var activities []models.Activity
	if err := cur.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Find runs an arbitrary filter with caller-controlled options. The
// paged listing endpoint builds its keyset window on top of this.
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Activity, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var activities []models.Activity
	if err := cur.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Count returns the number of activities matching the filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// Delete removes the activity document only. Cascading to groups,
// waypoints, media records and stored blobs is coordinated by the
// feature layer, which owns the blob store handle.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByFolders returns per-folder activity counts for listing
// screens.
func (s *Store) CountByFolders(ctx context.Context, folderIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	result := make(map[primitive.ObjectID]int)
	if len(folderIDs) == 0 {
		return result, nil
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"folder_id": bson.M{"$in": folderIDs}}},
		{"$group": bson.M{"_id": "$folder_id", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.N
	}
	return result, nil
}
