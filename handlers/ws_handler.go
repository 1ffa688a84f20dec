package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"assetverse/models"
	"assetverse/utils"
)

// ServeWS subscribes the caller to their company's live update feed. Browsers
// cannot set headers on websocket dials, so the credential rides in the
// "token" query parameter and is verified here instead of in the auth
// middleware. HR subscribes to their own company; employees to the first
// company they are affiliated with.
func ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	email, err := verifier.Verify(ctx, token)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusForbidden, "unknown user")
		return
	}

	var company string
	switch {
	case user.Role == models.RoleHR:
		company = user.CompanyName
	case len(user.Affiliations) > 0:
		company = user.Affiliations[0].CompanyName
	default:
		utils.RespondWithError(w, http.StatusForbidden, "no company affiliation")
		return
	}

	if err := hub.Register(company, w, r); err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
