// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trailhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("team_memberships")}
}

var (
	errBadRole             = errors.New(`role must be "admin" or "member"`)
	ErrDuplicateMembership = errors.New("user is already a member of this team")
)

// Add creates a membership. At most one document exists per
// (user, team); the unique index backs this up.
func (s *Store) Add(ctx context.Context, teamID, userID primitive.ObjectID, role models.MembershipRole) error {
	if !role.Valid() {
		return errBadRole
	}
	doc := models.TeamMembership{
		ID:        primitive.NewObjectID(),
		TeamID:    teamID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.c.InsertOne(ctx, doc)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// SetRole changes the role of an existing membership. Returns
// mongo.ErrNoDocuments when the membership does not exist.
func (s *Store) SetRole(ctx context.Context, teamID, userID primitive.ObjectID, role models.MembershipRole) error {
	if !role.Valid() {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"team_id": teamID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Remove deletes the membership document for (teamID, userID).
func (s *Store) Remove(ctx context.Context, teamID, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"team_id": teamID, "user_id": userID})
	return err
}

// Get returns the membership for (teamID, userID), if any.
func (s *Store) Get(ctx context.Context, teamID, userID primitive.ObjectID) (models.TeamMembership, error) {
	var m models.TeamMembership
	if err := s.c.FindOne(ctx, bson.M{"team_id": teamID, "user_id": userID}).Decode(&m); err != nil {
		return models.TeamMembership{}, err
	}
	return m, nil
}

// Exists checks if a membership exists for the given team and user.
func (s *Store) Exists(ctx context.Context, teamID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"team_id": teamID, "user_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TeamIDsForUser returns the IDs of every team the user belongs to.
// Access resolution turns these into team principals.
func (s *Store) TeamIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var m models.TeamMembership
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		ids = append(ids, m.TeamID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// IsAdmin reports whether the user holds the admin role on the team.
func (s *Store) IsAdmin(ctx context.Context, teamID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"team_id": teamID,
		"user_id": userID,
		"role":    models.RoleAdmin,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByTeam returns all memberships for a team, optionally filtered by
// role. An empty role returns all memberships.
func (s *Store) ListByTeam(ctx context.Context, teamID primitive.ObjectID, role models.MembershipRole) ([]models.TeamMembership, error) {
	filter := bson.M{"team_id": teamID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.TeamMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// DeleteByTeam removes all memberships for a team.
// Returns the number of documents deleted.
func (s *Store) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"team_id": teamID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships for a user.
// Returns the number of documents deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByTeam returns the count of memberships for a team, optionally
// filtered by role.
func (s *Store) CountByTeam(ctx context.Context, teamID primitive.ObjectID, role models.MembershipRole) (int64, error) {
	filter := bson.M{"team_id": teamID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}
