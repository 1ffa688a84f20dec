package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"assetverse/lifecycle"
	"assetverse/middleware"
	"assetverse/models"
	"assetverse/utils"
)

const dbTimeout = 10 * time.Second

var (
	errUnauthenticated = errors.New("unauthenticated")
	errForbidden       = errors.New("forbidden")
)

// currentUser resolves the verified principal email to its stored user
// record.
func currentUser(r *http.Request) (*models.User, error) {
	email, ok := middleware.PrincipalEmail(r.Context())
	if !ok {
		return nil, errUnauthenticated
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	var user models.User
	err := userCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errForbidden
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// requireRole gates HR-only and employee-only operations: the principal must
// have a user record with the given role.
func requireRole(r *http.Request, role string) (*models.User, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, errForbidden
	}
	return user, nil
}

// respondError maps the error taxonomy to HTTP codes: unauthenticated 401,
// forbidden 403, missing documents 404, business-rule violations 400,
// everything else 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnauthenticated):
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, errForbidden):
		utils.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, lifecycle.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, lifecycle.ErrInvalidInput),
		errors.Is(err, lifecycle.ErrInvalidState),
		errors.Is(err, lifecycle.ErrConflict),
		errors.Is(err, lifecycle.ErrUnavailable),
		errors.Is(err, lifecycle.ErrLimitReached):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("internal error", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathObjectID parses a hex ObjectID route variable.
func pathObjectID(vars map[string]string, key string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(vars[key])
	return id, err == nil
}

// recordAudit appends to the audit trail. Best effort: an audit failure never
// fails the operation it describes.
func recordAudit(ctx context.Context, actor *models.User, action, entityType string, entityID primitive.ObjectID, details bson.M) {
	entry := models.AuditLog{
		ID:          primitive.NewObjectID(),
		CompanyName: actor.CompanyName,
		ActorEmail:  actor.Email,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := auditLogCollection.InsertOne(ctx, entry); err != nil {
		logger.Warn("audit insert failed", zap.Error(err), zap.String("action", action))
	}
}
