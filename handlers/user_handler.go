package handlers

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/middleware"
	"assetverse/models"
	"assetverse/utils"
)

type upsertUserRequest struct {
	Name         string `json:"name"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	CompanyName  string `json:"companyName,omitempty"`
	CompanyLogo  string `json:"companyLogo,omitempty"`
}

// UpsertHRUser registers or refreshes the caller's profile as an HR
// administrator. The seat limit starts at zero; it is raised by a package
// purchase.
func UpsertHRUser(w http.ResponseWriter, r *http.Request) {
	upsertUser(w, r, models.RoleHR)
}

// UpsertEmployeeUser registers or refreshes the caller's profile as an
// employee.
func UpsertEmployeeUser(w http.ResponseWriter, r *http.Request) {
	upsertUser(w, r, models.RoleEmployee)
}

func upsertUser(w http.ResponseWriter, r *http.Request, role string) {
	email, ok := middleware.PrincipalEmail(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req upsertUserRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	if role == models.RoleHR && req.CompanyName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "companyName is required for hr accounts")
		return
	}

	set := bson.M{"name": req.Name}
	if req.DateOfBirth != "" {
		set["dateOfBirth"] = req.DateOfBirth
	}
	if req.ProfileImage != "" {
		set["profileImage"] = req.ProfileImage
	}
	if role == models.RoleHR {
		set["companyName"] = req.CompanyName
		if req.CompanyLogo != "" {
			set["companyLogo"] = req.CompanyLogo
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	// The role and counters are fixed at first registration; a later login
	// only refreshes profile fields.
	_, err := userCollection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"email":            email,
				"role":             role,
				"packageLimit":     0,
				"currentEmployees": 0,
				"createdAt":        time.Now().UTC(),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		respondError(w, err)
		return
	}

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// GetUserRole returns just the stored role, used by the client right after
// login to pick a dashboard.
func GetUserRole(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"role": user.Role})
}

// GetProfile returns the caller's full user document.
func GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name         string `json:"name,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	CompanyLogo  string `json:"companyLogo,omitempty"`
}

// UpdateProfile patches the caller's own profile fields. Role, email and the
// seat counters are not client-writable.
func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateProfileRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.DateOfBirth != "" {
		set["dateOfBirth"] = req.DateOfBirth
	}
	if req.ProfileImage != "" {
		set["profileImage"] = req.ProfileImage
	}
	if req.CompanyLogo != "" && user.Role == models.RoleHR {
		set["companyLogo"] = req.CompanyLogo
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if _, err := userCollection.UpdateOne(ctx, bson.M{"email": user.Email}, bson.M{"$set": set}); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "profile updated"})
}
