// internal/app/store/folderperms/folderpermstore.go
package folderpermstore

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

var errBadAccess = errors.New(`access must be "read" or "write"`)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("folder_permissions")}
}

// Grant creates or updates the single permission document for
// (folderID, principal). Re-granting with a different level replaces
// the level rather than accumulating documents.
func (s *Store) Grant(ctx context.Context, folderID primitive.ObjectID, p models.Principal, access models.AccessLevel) error {
	if !access.Valid() {
		return errBadAccess
	}
	now := time.Now().UTC()
	filter := bson.M{
		"folder_id":      folderID,
		"principal.type": p.Type,
		"principal.id":   p.ID,
	}
	update := bson.M{
		"$set": bson.M{
			"access":     access,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"folder_id":  folderID,
			"principal":  p,
			"created_at": now,
		},
	}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Revoke removes the grant for (folderID, principal). Returns the
// number of documents deleted (0 or 1).
func (s *Store) Revoke(ctx context.Context, folderID primitive.ObjectID, p models.Principal) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"folder_id":      folderID,
		"principal.type": p.Type,
		"principal.id":   p.ID,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByFolder returns every grant on a folder (sharing screens).
func (s *Store) ListByFolder(ctx context.Context, folderID primitive.ObjectID) ([]models.FolderPermission, error) {
	cur, err := s.c.Find(ctx, bson.M{"folder_id": folderID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var perms []models.FolderPermission
	if err := cur.All(ctx, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// FindForPrincipals returns every grant on any of folderIDs held by any
// of the principals. This is the single query behind access resolution:
// folderIDs is the ancestor chain, principals is the user plus their
// teams.
func (s *Store) FindForPrincipals(ctx context.Context, folderIDs []primitive.ObjectID, principals []models.Principal) ([]models.FolderPermission, error) {
	if len(folderIDs) == 0 || len(principals) == 0 {
		return nil, nil
	}
	ors := make([]bson.M, 0, len(principals))
	for _, p := range principals {
		ors = append(ors, bson.M{
			"principal.type": p.Type,
			"principal.id":   p.ID,
		})
	}
	cur, err := s.c.Find(ctx, bson.M{
		"folder_id": bson.M{"$in": folderIDs},
		"$or":       ors,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var perms []models.FolderPermission
	if err := cur.All(ctx, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// FolderIDsForPrincipals returns the distinct folder IDs that carry a
// grant for any of the principals. These seed the accessible-folder
// walk alongside owned folders.
func (s *Store) FolderIDsForPrincipals(ctx context.Context, principals []models.Principal) ([]primitive.ObjectID, error) {
	if len(principals) == 0 {
		return nil, nil
	}
	ors := make([]bson.M, 0, len(principals))
	for _, p := range principals {
		ors = append(ors, bson.M{
			"principal.type": p.Type,
			"principal.id":   p.ID,
		})
	}
	cur, err := s.c.Find(ctx, bson.M{"$or": ors},
		options.Find().SetProjection(bson.M{"folder_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	seen := map[primitive.ObjectID]bool{}
	var out []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			FolderID primitive.ObjectID `bson:"folder_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		if seen[row.FolderID] {
			continue
		}
		seen[row.FolderID] = true
		out = append(out, row.FolderID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByFolders removes every grant on the given folders (cascade
// when folders are deleted).
func (s *Store) DeleteByFolders(ctx context.Context, folderIDs []primitive.ObjectID) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"folder_id": bson.M{"$in": folderIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByPrincipal removes every grant held by a principal (cascade
// when a user or team is deleted).
func (s *Store) DeleteByPrincipal(ctx context.Context, p models.Principal) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"principal.type": p.Type,
		"principal.id":   p.ID,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
