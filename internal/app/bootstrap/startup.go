// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trailhub/internal/app/system/normalize"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB
// connections and schema setup are complete, but before the HTTP
// handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}

	if appCfg.StaffEmail != "" {
		if err := ensureStaffUser(ctx, deps, appCfg.StaffEmail, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureStaffUser promotes the named account to staff, or creates a
// placeholder staff account (disabled until a password is set) when no
// account exists. Idempotent across restarts.
func ensureStaffUser(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	email = normalize.Email(email)
	users := deps.MongoDatabase.Collection("users")

	var existing models.User
	err := users.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	switch {
	case err == nil:
		if existing.IsStaff {
			return nil
		}
		_, err = users.UpdateOne(ctx,
			bson.M{"_id": existing.ID},
			bson.M{"$set": bson.M{"is_staff": true, "updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		logger.Info("promoted user to staff", zap.String("email", email))
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		now := time.Now().UTC()
		_, err = users.InsertOne(ctx, models.User{
			ID:         primitive.NewObjectID(),
			FullName:   "Staff",
			FullNameCI: text.Fold("Staff"),
			Email:      email,
			IsStaff:    true,
			Status:     "disabled",
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		logger.Info("created staff user (disabled until a password is set)",
			zap.String("email", email))
		return nil
	default:
		return err
	}
}
