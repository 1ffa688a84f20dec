// handlers/collections.go
package handlers

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"assetverse/billing"
	"assetverse/events"
	"assetverse/identity"
	"assetverse/lifecycle"
	"assetverse/store"
	"assetverse/ws"
)

var (
	userCollection        *mongo.Collection
	assetCollection       *mongo.Collection
	requestCollection     *mongo.Collection
	assignmentCollection  *mongo.Collection
	affiliationCollection *mongo.Collection
	packageCollection     *mongo.Collection
	paymentCollection     *mongo.Collection
	auditLogCollection    *mongo.Collection

	engine        *lifecycle.Engine
	checkout      *billing.Client
	webhookSecret string
	producer      events.Producer
	hub           *ws.Hub
	verifier      identity.Verifier
	logger        *zap.Logger
)

// Deps carries everything the handler package needs. Wired once at startup.
type Deps struct {
	DB            *mongo.Database
	Engine        *lifecycle.Engine
	Checkout      *billing.Client
	WebhookSecret string
	Producer      events.Producer
	Hub           *ws.Hub
	Verifier      identity.Verifier
	Logger        *zap.Logger
}

func Init(deps Deps) {
	userCollection = deps.DB.Collection(store.ColUsers)
	assetCollection = deps.DB.Collection(store.ColAssets)
	requestCollection = deps.DB.Collection(store.ColRequests)
	assignmentCollection = deps.DB.Collection(store.ColAssignments)
	affiliationCollection = deps.DB.Collection(store.ColAffiliations)
	packageCollection = deps.DB.Collection(store.ColPackages)
	paymentCollection = deps.DB.Collection(store.ColPayments)
	auditLogCollection = deps.DB.Collection(store.ColAuditLogs)

	engine = deps.Engine
	checkout = deps.Checkout
	webhookSecret = deps.WebhookSecret
	producer = deps.Producer
	hub = deps.Hub
	verifier = deps.Verifier
	logger = deps.Logger.Named("handlers")
}
