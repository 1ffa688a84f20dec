package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/events"
	"assetverse/models"
	"assetverse/utils"
)

// ListMyEmployees returns the HR caller's active affiliations alongside the
// seat counters so the dashboard can show package headroom.
func ListMyEmployees(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := affiliationCollection.Find(ctx,
		bson.M{"hrEmail": hr.Email, "status": models.AffiliationActive},
		options.Find().SetSort(bson.D{{Key: "affiliationDate", Value: -1}}))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var affiliations []models.EmployeeAffiliation
	if err = cursor.All(ctx, &affiliations); err != nil {
		respondError(w, err)
		return
	}
	if affiliations == nil {
		affiliations = []models.EmployeeAffiliation{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"employees":        affiliations,
		"currentEmployees": hr.CurrentEmployees,
		"packageLimit":     hr.PackageLimit,
	})
}

// RemoveEmployee ends the affiliation and frees the seat. Outstanding
// assignments stay assigned; the employee can still return them.
func RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}
	employeeEmail := mux.Vars(r)["email"]
	if employeeEmail == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "employee email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if err := engine.RemoveEmployee(ctx, hr, employeeEmail); err != nil {
		respondError(w, err)
		return
	}

	recordAudit(ctx, hr, "employee_remove", "affiliation", primitive.NilObjectID, bson.M{"employeeEmail": employeeEmail})
	producer.Emit(events.EmployeeRemoved, events.Event{
		CompanyName:   hr.CompanyName,
		HREmail:       hr.Email,
		EmployeeEmail: employeeEmail,
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "employee removed"})
}
