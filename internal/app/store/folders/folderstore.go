// internal/app/store/folders/folderstore.go
package folderstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trailhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateRootName = errors.New("a top-level folder with this name already exists")
	ErrParentNotFound    = errors.New("parent folder does not exist")
	ErrCycle             = errors.New("folder cannot be moved under one of its own descendants")
)

// MaxDepth bounds every ancestor/descendant walk. A well-formed tree
// never comes close; the bound turns a corrupted parent chain into an
// error instead of an infinite loop.
const MaxDepth = 100

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("folders")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return models.Folder{}, err
	}
	return f, nil
}

// Create inserts a folder. ParentID nil makes it a root folder, whose
// name must be unique among roots; sibling names below the root are not
// constrained.
func (s *Store) Create(ctx context.Context, f models.Folder) (models.Folder, error) {
	if f.ParentID != nil {
		if err := s.c.FindOne(ctx, bson.M{"_id": *f.ParentID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				return models.Folder{}, ErrParentNotFound
			}
			return models.Folder{}, err
		}
	}

	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.Name = strings.TrimSpace(f.Name)
	f.NameCI = text.Fold(f.Name)
	f.IsRoot = f.ParentID == nil
	f.CreatedAt = now
	f.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, f)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Folder{}, ErrDuplicateRootName
		}
		return models.Folder{}, err
	}
	return f, nil
}

// Rename updates the folder's name. For root folders the global
// root-name uniqueness applies.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	name = strings.TrimSpace(name)
	set := bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"updated_at": time.Now().UTC(),
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateRootName
		}
		return err
	}
	return nil
}

// Move reparents a folder. parentID nil moves it to the top level.
// Rejects moves that would place the folder under itself or one of its
// descendants.
func (s *Store) Move(ctx context.Context, id primitive.ObjectID, parentID *primitive.ObjectID) error {
	if parentID != nil {
		if *parentID == id {
			return ErrCycle
		}
		// Walk up from the new parent; hitting id means id is an
		// ancestor of the target and the move would close a loop.
		chain, err := s.AncestorChain(ctx, *parentID)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrParentNotFound
			}
			return err
		}
		for _, f := range chain {
			if f.ID == id {
				return ErrCycle
			}
		}
	}

	set := bson.M{
		"parent_id":  parentID,
		"is_root":    parentID == nil,
		"updated_at": time.Now().UTC(),
	}
	if parentID == nil {
		// Moving to the top level re-enters root-name uniqueness.
		var f models.Folder
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
			return err
		}
		n, err := s.c.CountDocuments(ctx, bson.M{
			"is_root": true,
			"name_ci": f.NameCI,
			"_id":     bson.M{"$ne": id},
		})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateRootName
		}
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateRootName
		}
		return err
	}
	return nil
}

// AncestorChain returns the folder and its ancestors, nearest first
// (the folder itself is element 0, the root is last). The walk keeps a
// visited set and stops with an error on a cycle or when MaxDepth is
// exceeded, so a corrupted chain cannot hang resolution.
func (s *Store) AncestorChain(ctx context.Context, id primitive.ObjectID) ([]models.Folder, error) {
	var chain []models.Folder
	visited := map[primitive.ObjectID]bool{}

	cur := &id
	for depth := 0; cur != nil; depth++ {
		if depth >= MaxDepth {
			return nil, errors.New("folder ancestry exceeds depth limit")
		}
		if visited[*cur] {
			return nil, errors.New("folder ancestry contains a cycle")
		}
		visited[*cur] = true

		var f models.Folder
		if err := s.c.FindOne(ctx, bson.M{"_id": *cur}).Decode(&f); err != nil {
			return nil, err
		}
		chain = append(chain, f)
		cur = f.ParentID
	}
	return chain, nil
}

// ListByOwner returns every folder owned by userID, name-sorted.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Folder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var folders []models.Folder
	if err := cur.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// DescendantIDs returns the IDs of every folder below the given roots
// (breadth-first, roots not included). The visited set guards against
// corrupted parent chains; the walk stops after MaxDepth levels.
func (s *Store) DescendantIDs(ctx context.Context, rootIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	visited := map[primitive.ObjectID]bool{}
	for _, id := range rootIDs {
		visited[id] = true
	}

	frontier := rootIDs
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= MaxDepth {
			return nil, errors.New("folder hierarchy exceeds depth limit")
		}
		cur, err := s.c.Find(ctx,
			bson.M{"parent_id": bson.M{"$in": frontier}},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return nil, err
		}

		var next []primitive.ObjectID
		for cur.Next(ctx) {
			var row struct {
				ID primitive.ObjectID `bson:"_id"`
			}
			if err := cur.Decode(&row); err != nil {
				cur.Close(ctx)
				return nil, err
			}
			if visited[row.ID] {
				continue
			}
			visited[row.ID] = true
			out = append(out, row.ID)
			next = append(next, row.ID)
		}
		if err := cur.Err(); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		cur.Close(ctx)
		frontier = next
	}
	return out, nil
}

// Delete removes a folder by ID. Returns the number of documents
// deleted (0 or 1). Callers are responsible for cascading to contents.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteMany removes a set of folders by ID.
func (s *Store) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
