package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/events"
	"assetverse/models"
	"assetverse/utils"
	"assetverse/ws"
)

// ListMyAssignedAssets returns the calling employee's assignments, active
// first.
func ListMyAssignedAssets(w http.ResponseWriter, r *http.Request) {
	employee, err := requireRole(r, models.RoleEmployee)
	if err != nil {
		respondError(w, err)
		return
	}

	filter := bson.M{"employeeEmail": employee.Email}
	query := r.URL.Query()
	if status := query.Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if search := query.Get("search"); search != "" {
		filter["assetName"] = bson.M{"$regex": search, "$options": "i"}
	}
	if assetType := query.Get("type"); assetType != "" && assetType != "all" {
		filter["assetType"] = assetType
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := assignmentCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "status", Value: 1}, {Key: "assignmentDate", Value: -1}}))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var assignments []models.AssignedAsset
	if err = cursor.All(ctx, &assignments); err != nil {
		respondError(w, err)
		return
	}
	if assignments == nil {
		assignments = []models.AssignedAsset{}
	}
	utils.RespondWithJSON(w, http.StatusOK, assignments)
}

// ReturnAssignedAsset gives a unit back to inventory and closes the request.
func ReturnAssignedAsset(w http.ResponseWriter, r *http.Request) {
	employee, err := requireRole(r, models.RoleEmployee)
	if err != nil {
		respondError(w, err)
		return
	}
	id, ok := pathObjectID(mux.Vars(r), "id")
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	assignment, err := engine.ReturnAsset(ctx, employee, id)
	if err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, employee, "asset_return", "assignment", assignment.ID, bson.M{"assetName": assignment.AssetName})
	hub.Broadcast(assignment.CompanyName, ws.Update{
		Type:      ws.UpdateAssetReturned,
		Data:      assignment,
		Actor:     employee.Email,
		Timestamp: time.Now(),
	})
	producer.Emit(events.AssetReturned, events.Event{
		CompanyName:   assignment.CompanyName,
		HREmail:       assignment.HREmail,
		EmployeeEmail: employee.Email,
		AssetID:       assignment.AssetID.Hex(),
		RequestID:     assignment.RequestID.Hex(),
	})

	utils.RespondWithJSON(w, http.StatusOK, assignment)
}
