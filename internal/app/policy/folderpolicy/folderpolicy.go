// internal/app/policy/folderpolicy.go
package folderpolicy

import (
	"context"

	folderpermstore "github.com/dalemusser/trailhub/internal/app/store/folderperms"
	folderstore "github.com/dalemusser/trailhub/internal/app/store/folders"
	membershipstore "github.com/dalemusser/trailhub/internal/app/store/memberships"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// principalsFor returns the identity's user principal plus one team
// principal per team membership.
func principalsFor(ctx context.Context, db *mongo.Database, ident authz.Identity) ([]models.Principal, error) {
	principals := []models.Principal{models.UserPrincipal(ident.UserID)}
	teamIDs, err := membershipstore.New(db).TeamIDsForUser(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	for _, id := range teamIDs {
		principals = append(principals, models.TeamPrincipal(id))
	}
	return principals, nil
}

// Resolve computes the identity's effective access to a folder.
//
//   - Unauthenticated users get nothing.
//   - Staff get full access everywhere.
//   - Owning the folder itself gives full access. Owning an ancestor
//     does not; ancestors contribute only through grants.
//   - Otherwise access is the union of every grant held by the user or
//     any of their teams on the folder and its ancestors. Write implies
//     read; no grant outranks another.
//
// Returns an error if the folder does not exist or its ancestry is
// corrupted (cycle or excessive depth) — resolution fails closed either
// way, since the error yields no access.
func Resolve(ctx context.Context, db *mongo.Database, ident authz.Identity, folderID primitive.ObjectID) (models.FolderAccess, error) {
	if !ident.Authenticated {
		return models.NoAccess, nil
	}
	if ident.IsStaff {
		return models.FullAccess, nil
	}

	chain, err := folderstore.New(db).AncestorChain(ctx, folderID)
	if err != nil {
		return models.NoAccess, err
	}
	if len(chain) > 0 && chain[0].OwnerID == ident.UserID {
		return models.FullAccess, nil
	}

	chainIDs := make([]primitive.ObjectID, 0, len(chain))
	for _, f := range chain {
		chainIDs = append(chainIDs, f.ID)
	}

	principals, err := principalsFor(ctx, db, ident)
	if err != nil {
		return models.NoAccess, err
	}

	perms, err := folderpermstore.New(db).FindForPrincipals(ctx, chainIDs, principals)
	if err != nil {
		return models.NoAccess, err
	}

	access := models.NoAccess
	for _, p := range perms {
		switch p.Access {
		case models.AccessWrite:
			access = access.Union(models.FullAccess)
		case models.AccessRead:
			access = access.Union(models.FolderAccess{CanRead: true})
		}
	}
	return access, nil
}

// AccessibleFolderIDs returns every folder the identity can at least
// read: folders they own, folders granted to them or their teams, and
// all descendants of those. Staff see every folder.
func AccessibleFolderIDs(ctx context.Context, db *mongo.Database, ident authz.Identity) ([]primitive.ObjectID, error) {
	if !ident.Authenticated {
		return nil, nil
	}
	if ident.IsStaff {
		return allFolderIDs(ctx, db)
	}

	fs := folderstore.New(db)

	owned, err := fs.ListByOwner(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}

	principals, err := principalsFor(ctx, db, ident)
	if err != nil {
		return nil, err
	}
	granted, err := folderpermstore.New(db).FolderIDsForPrincipals(ctx, principals)
	if err != nil {
		return nil, err
	}

	seen := map[primitive.ObjectID]bool{}
	var seeds []primitive.ObjectID
	for _, f := range owned {
		if !seen[f.ID] {
			seen[f.ID] = true
			seeds = append(seeds, f.ID)
		}
	}
	for _, id := range granted {
		if !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	descendants, err := fs.DescendantIDs(ctx, seeds)
	if err != nil {
		return nil, err
	}
	return append(seeds, descendants...), nil
}

func allFolderIDs(ctx context.Context, db *mongo.Database) ([]primitive.ObjectID, error) {
	cur, err := db.Collection("folders").Find(ctx, bson.M{},
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

// CanReadActivity reports whether the identity may view an activity.
// Activities outside any folder are visible only to their author (and
// staff); activities in a folder follow folder access.
func CanReadActivity(ctx context.Context, db *mongo.Database, ident authz.Identity, a models.Activity) (bool, error) {
	if !ident.Authenticated {
		return false, nil
	}
	if ident.IsStaff {
		return true, nil
	}
	if a.FolderID == nil {
		return a.AuthorID == ident.UserID, nil
	}
	access, err := Resolve(ctx, db, ident, *a.FolderID)
	if err != nil {
		return false, err
	}
	return access.CanRead, nil
}

// CanWriteActivity reports whether the identity may modify an activity
// or anything beneath it (groups, waypoints, media). Authorship grants
// write only while the activity sits outside any folder; once filed,
// folder access alone decides.
func CanWriteActivity(ctx context.Context, db *mongo.Database, ident authz.Identity, a models.Activity) (bool, error) {
	if !ident.Authenticated {
		return false, nil
	}
	if ident.IsStaff {
		return true, nil
	}
	if a.FolderID == nil {
		return a.AuthorID == ident.UserID, nil
	}
	access, err := Resolve(ctx, db, ident, *a.FolderID)
	if err != nil {
		return false, err
	}
	return access.CanWrite, nil
}

