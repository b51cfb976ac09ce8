// internal/app/policy/teampolicy/teampolicy.go
package teampolicy

import (
	"context"

	membershipstore "github.com/dalemusser/trailhub/internal/app/store/memberships"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// CanManageTeam reports whether the identity may rename the team,
// change its membership, or delete it:
//   - Staff always can
//   - The team's owner can
//   - Admin members can
//
// Returns an error if the database check fails, allowing callers to
// distinguish "not authorized" (false, nil) from "database error"
// (false, err).
func CanManageTeam(ctx context.Context, db *mongo.Database, ident authz.Identity, t models.Team) (bool, error) {
	if !ident.Authenticated {
		return false, nil
	}
	if ident.IsStaff {
		return true, nil
	}
	if t.OwnerID == ident.UserID {
		return true, nil
	}
	return membershipstore.New(db).IsAdmin(ctx, t.ID, ident.UserID)
}

// CanViewTeam reports whether the identity may see the team's detail
// and member list: staff, the owner, and any member.
func CanViewTeam(ctx context.Context, db *mongo.Database, ident authz.Identity, t models.Team) (bool, error) {
	if !ident.Authenticated {
		return false, nil
	}
	if ident.IsStaff || t.OwnerID == ident.UserID {
		return true, nil
	}
	return membershipstore.New(db).Exists(ctx, t.ID, ident.UserID)
}
