package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/events"
	"assetverse/models"
	"assetverse/utils"
	"assetverse/ws"
)

type createRequestBody struct {
	AssetID string `json:"assetId"`
	Note    string `json:"note,omitempty"`
}

// CreateRequest lets an employee ask for an asset. One pending request per
// (asset, employee) pair.
func CreateRequest(w http.ResponseWriter, r *http.Request) {
	employee, err := requireRole(r, models.RoleEmployee)
	if err != nil {
		respondError(w, err)
		return
	}

	var body createRequestBody
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	assetID, err := primitive.ObjectIDFromHex(body.AssetID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	req, err := engine.SubmitRequest(ctx, employee, assetID, body.Note)
	if err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, employee, "request_submit", "request", req.ID, bson.M{"assetName": req.AssetName})
	hub.Broadcast(req.CompanyName, ws.Update{
		Type:      ws.UpdateRequestSubmitted,
		Data:      req,
		Actor:     employee.Email,
		Timestamp: time.Now(),
	})
	producer.Emit(events.RequestSubmitted, events.Event{
		CompanyName:   req.CompanyName,
		HREmail:       req.HREmail,
		EmployeeEmail: employee.Email,
		AssetID:       req.AssetID.Hex(),
		RequestID:     req.ID.Hex(),
	})

	utils.RespondWithJSON(w, http.StatusCreated, req)
}

// ListAllRequests returns the HR caller's request queue with optional
// status/search filters and page/limit pagination.
func ListAllRequests(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	filter := bson.M{"hrEmail": hr.Email}
	query := r.URL.Query()
	if status := query.Get("status"); status != "" && status != "all" {
		filter["requestStatus"] = status
	}
	if search := query.Get("search"); search != "" {
		filter["$or"] = bson.A{
			bson.M{"requesterName": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"requesterEmail": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	total, err := requestCollection.CountDocuments(ctx, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "requestDate", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := requestCollection.Find(ctx, filter, opts)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err = cursor.All(ctx, &requests); err != nil {
		respondError(w, err)
		return
	}
	if requests == nil {
		requests = []models.Request{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ListMyRequests returns the calling employee's own requests, newest first.
func ListMyRequests(w http.ResponseWriter, r *http.Request) {
	employee, err := requireRole(r, models.RoleEmployee)
	if err != nil {
		respondError(w, err)
		return
	}

	filter := bson.M{"requesterEmail": employee.Email}
	query := r.URL.Query()
	if status := query.Get("status"); status != "" && status != "all" {
		filter["requestStatus"] = status
	}
	if search := query.Get("search"); search != "" {
		filter["assetName"] = bson.M{"$regex": search, "$options": "i"}
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := requestCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "requestDate", Value: -1}}))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err = cursor.All(ctx, &requests); err != nil {
		respondError(w, err)
		return
	}
	if requests == nil {
		requests = []models.Request{}
	}
	utils.RespondWithJSON(w, http.StatusOK, requests)
}

// ApproveRequest runs the approval flow: reserve a unit, take a seat if the
// employee is new to the company, record the assignment.
func ApproveRequest(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}
	id, ok := pathObjectID(mux.Vars(r), "id")
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	req, err := engine.ApproveRequest(ctx, hr, id)
	if err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, hr, "request_approve", "request", req.ID, bson.M{"requesterEmail": req.RequesterEmail})
	hub.Broadcast(req.CompanyName, ws.Update{
		Type:      ws.UpdateRequestApproved,
		Data:      req,
		Actor:     hr.Email,
		Timestamp: time.Now(),
	})
	producer.Emit(events.RequestApproved, events.Event{
		CompanyName:   req.CompanyName,
		HREmail:       hr.Email,
		EmployeeEmail: req.RequesterEmail,
		AssetID:       req.AssetID.Hex(),
		RequestID:     req.ID.Hex(),
	})

	utils.RespondWithJSON(w, http.StatusOK, req)
}

// RejectRequest declines a pending request. No inventory or seat changes.
func RejectRequest(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}
	id, ok := pathObjectID(mux.Vars(r), "id")
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	req, err := engine.RejectRequest(ctx, hr, id)
	if err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, hr, "request_reject", "request", req.ID, bson.M{"requesterEmail": req.RequesterEmail})
	hub.Broadcast(req.CompanyName, ws.Update{
		Type:      ws.UpdateRequestRejected,
		Data:      req,
		Actor:     hr.Email,
		Timestamp: time.Now(),
	})
	producer.Emit(events.RequestRejected, events.Event{
		CompanyName:   req.CompanyName,
		HREmail:       hr.Email,
		EmployeeEmail: req.RequesterEmail,
		AssetID:       req.AssetID.Hex(),
		RequestID:     req.ID.Hex(),
	})

	utils.RespondWithJSON(w, http.StatusOK, req)
}
