package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/lifecycle"
	"assetverse/models"
	"assetverse/utils"
)

type createAssetRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Image    string `json:"image,omitempty"`
	Quantity int    `json:"quantity"`
}

// CreateAsset registers a new inventory line for the HR caller's company.
func CreateAsset(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createAssetRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	asset, err := engine.CreateAsset(ctx, hr, lifecycle.CreateAssetInput{
		Name:     req.Name,
		Type:     req.Type,
		Image:    req.Image,
		Quantity: req.Quantity,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, hr, "asset_create", "asset", asset.ID, bson.M{
		"name":     asset.Name,
		"quantity": asset.Quantity,
	})

	utils.RespondWithJSON(w, http.StatusCreated, asset)
}

// assetListFilter builds the inventory query. HR always sees their own
// lines. Employees browse the whole catalog unless mine=true narrows it to
// the companies they are affiliated with; browsing must not require an
// affiliation, since the first affiliation is created by a first approval.
func assetListFilter(user *models.User, query url.Values) bson.M {
	filter := bson.M{}
	if user.Role == models.RoleHR {
		filter["hrEmail"] = user.Email
	} else if query.Get("mine") == "true" {
		companies := make([]string, 0, len(user.Affiliations))
		for _, aff := range user.Affiliations {
			companies = append(companies, aff.CompanyName)
		}
		filter["companyName"] = bson.M{"$in": companies}
	}

	if search := query.Get("search"); search != "" {
		filter["name"] = bson.M{"$regex": search, "$options": "i"}
	}
	if assetType := query.Get("type"); assetType != "" && assetType != "all" {
		filter["type"] = assetType
	}
	switch query.Get("availability") {
	case "available":
		filter["availableQuantity"] = bson.M{"$gte": 1}
	case "out-of-stock":
		filter["availableQuantity"] = bson.M{"$lt": 1}
	}
	return filter
}

func assetListSort(query url.Values) bson.D {
	switch query.Get("sort") {
	case "quantity":
		return bson.D{{Key: "quantity", Value: 1}}
	case "-quantity":
		return bson.D{{Key: "quantity", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}}
}

// ListAssets returns inventory, scoped by assetListFilter. Supports search,
// type and availability filters plus quantity sorting.
func ListAssets(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, err)
		return
	}

	query := r.URL.Query()
	filter := assetListFilter(user, query)
	sort := assetListSort(query)

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := assetCollection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		respondError(w, err)
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	utils.RespondWithJSON(w, http.StatusOK, assets)
}

// DeleteAsset removes an inventory line owned by the HR caller. Outstanding
// assignments are untouched; returns against the deleted asset skip the
// inventory step.
func DeleteAsset(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	id, ok := pathObjectID(mux.Vars(r), "id")
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	res, err := assetCollection.DeleteOne(ctx, bson.M{"_id": id, "hrEmail": hr.Email})
	if err != nil {
		respondError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "asset not found")
		return
	}

	recordAudit(ctx, hr, "asset_delete", "asset", id, nil)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}
