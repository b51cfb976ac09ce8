// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/trailhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections this app uses
	ensure("users", usersSchema())
	ensure("folders", foldersSchema())
	ensure("teams", teamsSchema())
	ensure("activities", activitiesSchema())

	// Sharing and membership collections
	ensure("folder_permissions", folderPermissionsSchema())
	ensure("team_memberships", teamMembershipsSchema())

	// Waypoint hierarchy
	ensure("waypoint_groups", waypointGroupsSchema())
	ensure("waypoints", waypointsSchema())
	ensure("waypoint_media", waypointMediaSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "status"},
			"properties": bson.M{
				"full_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"email":        bson.M{"bsonType": "string", "minLength": 3},
				"is_staff":     bson.M{"bsonType": "bool"},
				"status":       bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func foldersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "owner_id"},
			"properties": bson.M{
				"name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":   bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"owner_id":  bson.M{"bsonType": "objectId"},
				"parent_id": bson.M{"bsonType": bson.A{"objectId", "null"}},
				"is_root":   bson.M{"bsonType": "bool"},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci"},
			"properties": bson.M{
				"name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
			},
		},
	}
}

func folderPermissionsSchema() bson.M {
	// Build the enums from the canonical lists in the domain models.
	typeEnum := bson.A{}
	for _, t := range models.PrincipalTypes {
		typeEnum = append(typeEnum, string(t))
	}
	accessEnum := bson.A{}
	for _, a := range models.AccessLevels {
		accessEnum = append(accessEnum, string(a))
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"folder_id", "principal", "access"},
			"properties": bson.M{
				"folder_id": bson.M{"bsonType": "objectId"},
				"principal": bson.M{
					"bsonType": "object",
					"required": bson.A{"type", "id"},
					"properties": bson.M{
						"type": bson.M{"enum": typeEnum},
						"id":   bson.M{"bsonType": "objectId"},
					},
				},
				"access":     bson.M{"enum": accessEnum},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func teamMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "team_id", "role"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"team_id":    bson.M{"bsonType": "objectId"},
				"role":       bson.M{"enum": bson.A{"admin", "member"}},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func activitiesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "author_id"},
			"properties": bson.M{
				"name":                bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":             bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"author_id":           bson.M{"bsonType": "objectId"},
				"folder_id":           bson.M{"bsonType": bson.A{"objectId", "null"}},
				"description":         bson.M{"bsonType": "string"},
				"unpublished_changes": bson.M{"bsonType": "bool"},
				"last_published":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func waypointGroupsSchema() bson.M {
	typeEnum := bson.A{}
	for _, t := range models.WaypointGroupTypes {
		typeEnum = append(typeEnum, string(t))
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"activity_id", "name", "type"},
			"properties": bson.M{
				"activity_id": bson.M{"bsonType": "objectId"},
				"name":        bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"type":        bson.M{"enum": typeEnum},
				"index":       bson.M{"bsonType": "int", "minimum": 0},
			},
		},
	}
}

func waypointsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "name"},
			"properties": bson.M{
				"group_id": bson.M{"bsonType": "objectId"},
				"name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				// -1 is the transient parking slot used while two waypoints
				// swap positions; it never survives a committed transaction.
				"index":     bson.M{"bsonType": "int", "minimum": -1},
				"latitude":  bson.M{"bsonType": bson.A{"double", "int"}, "minimum": -90, "maximum": 90},
				"longitude": bson.M{"bsonType": bson.A{"double", "int"}, "minimum": -180, "maximum": 180},
			},
		},
	}
}

func waypointMediaSchema() bson.M {
	typeEnum := bson.A{}
	for _, t := range models.MediaTypes {
		typeEnum = append(typeEnum, string(t))
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"waypoint_id", "type", "media_path"},
			"properties": bson.M{
				"waypoint_id": bson.M{"bsonType": "objectId"},
				"type":        bson.M{"enum": typeEnum},
				"media_path":  bson.M{"bsonType": "string", "minLength": 1},
				"index":       bson.M{"bsonType": "int", "minimum": 0},
			},
		},
	}
}
