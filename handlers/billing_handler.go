package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"assetverse/billing"
	"assetverse/events"
	"assetverse/models"
	"assetverse/utils"
)

// maxWebhookBody bounds how much of a webhook request we will read.
const maxWebhookBody = 1 << 20

// ListPackages returns the seat-tier catalog, cheapest first.
func ListPackages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := packageCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "price", Value: 1}}))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var packages []models.Package
	if err = cursor.All(ctx, &packages); err != nil {
		respondError(w, err)
		return
	}
	if packages == nil {
		packages = []models.Package{}
	}
	utils.RespondWithJSON(w, http.StatusOK, packages)
}

type checkoutRequest struct {
	PackageID string `json:"packageId"`
}

// CreateCheckoutSession opens a hosted checkout session for a seat package.
func CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	var body checkoutRequest
	if err := utils.ParseJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	packageID, err := primitive.ObjectIDFromHex(body.PackageID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	var pkg models.Package
	if err := packageCollection.FindOne(ctx, bson.M{"_id": packageID}).Decode(&pkg); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "package not found")
		return
	}

	session, err := checkout.CreateCheckoutSession(ctx, billing.CheckoutSessionInput{
		HREmail:     hr.Email,
		PackageID:   pkg.ID.Hex(),
		PackageName: pkg.Name,
		Amount:      pkg.Price,
		Currency:    "usd",
	})
	if err != nil {
		logger.Error("checkout session failed", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, "payment processor unavailable")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, session)
}

type paymentSuccessRequest struct {
	TransactionID string `json:"transactionId"`
	PackageID     string `json:"packageId"`
}

// PaymentSuccess is the client-side confirmation path. It applies the payment
// the same idempotent way the webhook does; whichever arrives first wins and
// the other is a no-op.
func PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	var body paymentSuccessRequest
	if err := utils.ParseJSON(r, &body); err != nil || body.TransactionID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	packageID, err := primitive.ObjectIDFromHex(body.PackageID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	var pkg models.Package
	if err := packageCollection.FindOne(ctx, bson.M{"_id": packageID}).Decode(&pkg); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "package not found")
		return
	}

	applied, err := applyPayment(ctx, hr.Email, pkg, body.TransactionID, pkg.Price)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "payment recorded",
		"applied": applied,
	})
}

// PaymentWebhook is the processor's server-to-server confirmation. It is
// unauthenticated; trust comes from the signature over the raw body.
func PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	sig := r.Header.Get("Webhook-Signature")
	if err := billing.VerifySignature(payload, sig, webhookSecret, time.Now(), billing.DefaultTolerance); err != nil {
		logger.Warn("webhook rejected", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	event, err := billing.ParseEvent(payload)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if event.Type != billing.EventCheckoutCompleted {
		// Acknowledge event types we do not act on so the processor stops
		// retrying them.
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ignored"})
		return
	}

	object := event.Data.Object
	packageID, err := primitive.ObjectIDFromHex(object.Metadata.PackageID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid package metadata")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	var pkg models.Package
	if err := packageCollection.FindOne(ctx, bson.M{"_id": packageID}).Decode(&pkg); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "unknown package")
		return
	}

	if _, err := applyPayment(ctx, object.Metadata.HREmail, pkg, object.ID, object.AmountTotal); err != nil {
		// 5xx so the processor retries; applyPayment is idempotent.
		respondError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "received"})
}

// applyPayment delegates to the lifecycle engine, which keys application on
// the transaction id so duplicate confirmations are no-ops, and emits the
// domain event only when this call was the one that applied the payment.
func applyPayment(ctx context.Context, hrEmail string, pkg models.Package, transactionID string, amount int64) (bool, error) {
	hr, applied, err := engine.ApplyPayment(ctx, hrEmail, &pkg, transactionID, amount)
	if err != nil {
		return false, err
	}
	if applied {
		producer.Emit(events.PaymentCompleted, events.Event{
			CompanyName: hr.CompanyName,
			HREmail:     hrEmail,
		})
	}
	return applied, nil
}

// ListPayments returns the HR caller's payment history, newest first.
func ListPayments(w http.ResponseWriter, r *http.Request) {
	hr, err := requireRole(r, models.RoleHR)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	cursor, err := paymentCollection.Find(ctx, bson.M{"hrEmail": hr.Email},
		options.Find().SetSort(bson.D{{Key: "paymentDate", Value: -1}}))
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		respondError(w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	utils.RespondWithJSON(w, http.StatusOK, payments)
}
