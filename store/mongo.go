// Package store provides the persistence implementations behind the
// lifecycle engine: a MongoDB store for production and an in-memory store
// for tests.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assetverse/lifecycle"
	"assetverse/models"
)

const (
	ColUsers        = "users"
	ColAssets       = "assets"
	ColRequests     = "requests"
	ColAssignments  = "assignedAssets"
	ColAffiliations = "employeeAffiliations"
	ColPackages     = "packages"
	ColPayments     = "payments"
	ColAuditLogs    = "auditLogs"
)

// Mongo implements lifecycle.Store on a MongoDB database. Counter bounds are
// enforced by conditional filters on the update itself, so they hold under
// concurrent writers; multi-document sequences run through InTransaction.
type Mongo struct {
	db     *mongo.Database
	client *mongo.Client
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db, client: db.Client()}
}

// EnsureIndexes creates the indexes the invariants depend on: unique user
// emails, a partial unique index that admits only one pending request per
// (asset, requester), unique affiliation per (employee, hr), and unique
// payment transaction ids.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ColUsers: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		ColRequests: {{
			Keys: bson.D{{Key: "assetId", Value: 1}, {Key: "requesterEmail", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"requestStatus": models.RequestPending}),
		}},
		ColAffiliations: {{
			Keys:    bson.D{{Key: "employeeEmail", Value: 1}, {Key: "hrEmail", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		ColPayments: {{
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		ColAssignments: {{
			Keys: bson.D{{Key: "employeeEmail", Value: 1}, {Key: "status", Value: 1}},
		}},
	}

	for col, idx := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes for %s: %w", col, err)
		}
	}
	return nil
}

func (s *Mongo) InsertAsset(ctx context.Context, asset *models.Asset) error {
	_, err := s.db.Collection(ColAssets).InsertOne(ctx, asset)
	return err
}

func (s *Mongo) AssetByID(ctx context.Context, id primitive.ObjectID) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Collection(ColAssets).FindOne(ctx, bson.M{"_id": id}).Decode(&asset)
	if err == mongo.ErrNoDocuments {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *Mongo) ReserveAssetUnit(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(ColAssets).UpdateOne(ctx,
		bson.M{"_id": id, "availableQuantity": bson.M{"$gte": 1}},
		bson.M{"$inc": bson.M{"availableQuantity": -1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return lifecycle.ErrUnavailable
	}
	return nil
}

func (s *Mongo) ReleaseAssetUnit(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(ColAssets).UpdateOne(ctx,
		bson.M{"_id": id, "$expr": bson.M{"$lt": bson.A{"$availableQuantity", "$quantity"}}},
		bson.M{"$inc": bson.M{"availableQuantity": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the asset is gone (deleted while assigned) or the counter
		// is already at quantity; distinguish so the caller can skip the gap
		// case.
		count, err := s.db.Collection(ColAssets).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if count == 0 {
			return lifecycle.ErrNotFound
		}
		return lifecycle.ErrInvalidState
	}
	return nil
}

func (s *Mongo) InsertRequest(ctx context.Context, req *models.Request) error {
	_, err := s.db.Collection(ColRequests).InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return lifecycle.ErrConflict
	}
	return err
}

func (s *Mongo) RequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error) {
	var req models.Request
	err := s.db.Collection(ColRequests).FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Mongo) PendingRequestExists(ctx context.Context, assetID primitive.ObjectID, requesterEmail string) (bool, error) {
	count, err := s.db.Collection(ColRequests).CountDocuments(ctx, bson.M{
		"assetId":        assetID,
		"requesterEmail": requesterEmail,
		"requestStatus":  models.RequestPending,
	})
	return count > 0, err
}

func (s *Mongo) UpdateRequestStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, processedBy string, at time.Time) error {
	set := bson.M{"requestStatus": to}
	if to == models.RequestApproved || to == models.RequestRejected {
		set["approvalDate"] = at
		set["processedBy"] = processedBy
	}
	res, err := s.db.Collection(ColRequests).UpdateOne(ctx,
		bson.M{"_id": id, "requestStatus": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return lifecycle.ErrInvalidState
	}
	return nil
}

func (s *Mongo) InsertAssignedAsset(ctx context.Context, a *models.AssignedAsset) error {
	_, err := s.db.Collection(ColAssignments).InsertOne(ctx, a)
	return err
}

func (s *Mongo) AssignedAssetByID(ctx context.Context, id primitive.ObjectID) (*models.AssignedAsset, error) {
	var a models.AssignedAsset
	err := s.db.Collection(ColAssignments).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Mongo) ActiveAssignmentExists(ctx context.Context, assetID primitive.ObjectID, employeeEmail string) (bool, error) {
	count, err := s.db.Collection(ColAssignments).CountDocuments(ctx, bson.M{
		"assetId":       assetID,
		"employeeEmail": employeeEmail,
		"status":        models.AssignmentAssigned,
	})
	return count > 0, err
}

func (s *Mongo) MarkAssignmentReturned(ctx context.Context, id primitive.ObjectID, employeeEmail string, at time.Time) error {
	res, err := s.db.Collection(ColAssignments).UpdateOne(ctx,
		bson.M{"_id": id, "employeeEmail": employeeEmail, "status": models.AssignmentAssigned},
		bson.M{"$set": bson.M{"status": models.AssignmentReturned, "returnDate": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return lifecycle.ErrInvalidState
	}
	return nil
}

func (s *Mongo) ActiveAffiliationExists(ctx context.Context, employeeEmail, hrEmail string) (bool, error) {
	count, err := s.db.Collection(ColAffiliations).CountDocuments(ctx, bson.M{
		"employeeEmail": employeeEmail,
		"hrEmail":       hrEmail,
		"status":        models.AffiliationActive,
	})
	return count > 0, err
}

func (s *Mongo) ActivateAffiliation(ctx context.Context, aff *models.EmployeeAffiliation) error {
	// Upsert keyed on (employee, hr): a first approval inserts, a
	// re-approval after removal reactivates the soft-deleted record.
	_, err := s.db.Collection(ColAffiliations).UpdateOne(ctx,
		bson.M{"employeeEmail": aff.EmployeeEmail, "hrEmail": aff.HREmail},
		bson.M{
			"$set": bson.M{
				"status":          models.AffiliationActive,
				"affiliationDate": aff.AffiliationDate,
				"employeeName":    aff.EmployeeName,
				"companyName":     aff.CompanyName,
			},
			"$setOnInsert": bson.M{"_id": aff.ID},
		},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return lifecycle.ErrConflict
	}
	return err
}

func (s *Mongo) DeactivateAffiliation(ctx context.Context, employeeEmail, hrEmail string) error {
	res, err := s.db.Collection(ColAffiliations).UpdateOne(ctx,
		bson.M{"employeeEmail": employeeEmail, "hrEmail": hrEmail, "status": models.AffiliationActive},
		bson.M{"$set": bson.M{"status": models.AffiliationInactive}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

func (s *Mongo) GrowEmployeeCount(ctx context.Context, hrEmail string) error {
	// The filter is the limit check: the increment applies only while
	// currentEmployees < packageLimit. An HR account without a purchased
	// package has packageLimit 0 and cannot grow.
	res, err := s.db.Collection(ColUsers).UpdateOne(ctx,
		bson.M{
			"email": hrEmail,
			"role":  models.RoleHR,
			"$expr": bson.M{"$lt": bson.A{"$currentEmployees", "$packageLimit"}},
		},
		bson.M{"$inc": bson.M{"currentEmployees": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return lifecycle.ErrLimitReached
	}
	return nil
}

func (s *Mongo) ShrinkEmployeeCount(ctx context.Context, hrEmail string) error {
	_, err := s.db.Collection(ColUsers).UpdateOne(ctx,
		bson.M{"email": hrEmail, "currentEmployees": bson.M{"$gte": 1}},
		bson.M{"$inc": bson.M{"currentEmployees": -1}},
	)
	return err
}

func (s *Mongo) AddCompanyAffiliation(ctx context.Context, employeeEmail string, entry models.CompanyAffiliation) error {
	// $ne filter keeps the entry unique per company; a repeat approval after
	// removal re-adds it.
	_, err := s.db.Collection(ColUsers).UpdateOne(ctx,
		bson.M{"email": employeeEmail, "companyAffiliations.companyName": bson.M{"$ne": entry.CompanyName}},
		bson.M{"$push": bson.M{"companyAffiliations": entry}},
	)
	return err
}

func (s *Mongo) PullCompanyAffiliation(ctx context.Context, employeeEmail, companyName string) error {
	_, err := s.db.Collection(ColUsers).UpdateOne(ctx,
		bson.M{"email": employeeEmail},
		bson.M{"$pull": bson.M{"companyAffiliations": bson.M{"companyName": companyName}}},
	)
	return err
}

func (s *Mongo) InsertPaymentOnce(ctx context.Context, p *models.Payment) (bool, error) {
	// $setOnInsert upsert backed by the unique transactionId index: exactly
	// one of any set of concurrent confirmations inserts the row.
	res, err := s.db.Collection(ColPayments).UpdateOne(ctx,
		bson.M{"transactionId": p.TransactionID},
		bson.M{"$setOnInsert": p},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (s *Mongo) SetPackageLimit(ctx context.Context, hrEmail string, limit int) (*models.User, error) {
	var hr models.User
	err := s.db.Collection(ColUsers).FindOneAndUpdate(ctx,
		bson.M{"email": hrEmail, "role": models.RoleHR},
		bson.M{"$set": bson.M{"packageLimit": limit}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&hr)
	if err == mongo.ErrNoDocuments {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hr, nil
}

func (s *Mongo) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
