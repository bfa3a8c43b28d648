package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/billing"
	"github.com/bardofig/roozterfaceapp/internal/derive"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// PurchaseRequest carries the purchase details sent by the app.
type PurchaseRequest struct {
	PackageName    string
	SubscriptionID string
	PurchaseToken  string
}

// BillingService validates subscription purchases against the app store and
// applies the granted plan to the caller's user document.
type BillingService struct {
	store    store.Store
	verifier billing.Verifier
}

// NewBillingService creates a billing service.
func NewBillingService(s store.Store, v billing.Verifier) *BillingService {
	return &BillingService{store: s, verifier: v}
}

// ValidatePurchase verifies a purchase token and, if the subscription is
// active, upgrades the caller's plan and records the subscription state.
// Returns the granted plan.
func (s *BillingService) ValidatePurchase(ctx context.Context, caller auth.Caller, req PurchaseRequest) (string, error) {
	if caller.UID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("the caller must be authenticated to validate a purchase"))
	}
	if req.PackageName == "" || req.SubscriptionID == "" || req.PurchaseToken == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("packageName, subscriptionId and purchaseToken are required"))
	}

	result, err := s.verifier.Verify(ctx, req.PackageName, req.SubscriptionID, req.PurchaseToken)
	if err != nil {
		return "", asCallerError(err, "purchase verification", "uid", caller.UID, "subscription_id", req.SubscriptionID)
	}
	if !result.Active() {
		return "", connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("purchase is not active: payment state %d", result.PaymentState))
	}

	plan := derive.PlanForSubscription(req.SubscriptionID)
	err = s.store.Update(ctx, store.CollectionUsers, caller.UID, store.Document{
		"plan":                   plan,
		"activeSubscriptionId":   req.SubscriptionID,
		"purchaseToken":          req.PurchaseToken,
		"subscriptionExpiryDate": result.Expiry.Format(time.RFC3339),
	})
	if err != nil {
		return "", asCallerError(err, "apply purchased plan", "uid", caller.UID, "plan", plan)
	}

	slog.Info("purchase validated", "uid", caller.UID, "plan", plan, "expiry", result.Expiry)
	return plan, nil
}
