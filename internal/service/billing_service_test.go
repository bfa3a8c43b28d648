package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/billing"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// fakePublisher serves the androidpublisher verification shape with a fixed
// payment state.
func fakePublisher(t *testing.T, paymentState int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"paymentState": %d, "expiryTimeMillis": "1767225600000"}`, paymentState)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validPurchase() PurchaseRequest {
	return PurchaseRequest{
		PackageName:    "com.bardofig.roozterfaceapp",
		SubscriptionID: "maestro_criador_anual",
		PurchaseToken:  "tok-123",
	}
}

func TestValidatePurchase_GrantsPlan(t *testing.T) {
	s := newTestStore(t)
	ownerUID, _ := seedOwnerAndGroup(t, s)
	srv := fakePublisher(t, billing.StateReceived)
	svc := NewBillingService(s, billing.NewHTTPVerifier(srv.URL, srv.Client()))

	plan, err := svc.ValidatePurchase(context.Background(), auth.Caller{UID: ownerUID}, validPurchase())
	if err != nil {
		t.Fatalf("ValidatePurchase failed: %v", err)
	}
	if plan != "maestro" {
		t.Errorf("plan: expected maestro, got %q", plan)
	}

	user := getDoc(t, s, store.CollectionUsers, ownerUID)
	if user["plan"] != "maestro" {
		t.Errorf("stored plan: expected maestro, got %v", user["plan"])
	}
	if user["activeSubscriptionId"] != "maestro_criador_anual" {
		t.Errorf("activeSubscriptionId: got %v", user["activeSubscriptionId"])
	}
	if user["purchaseToken"] != "tok-123" {
		t.Errorf("purchaseToken: got %v", user["purchaseToken"])
	}
	// 1767225600000 ms is 2026-01-01T00:00:00Z.
	if user["subscriptionExpiryDate"] != "2026-01-01T00:00:00Z" {
		t.Errorf("subscriptionExpiryDate: got %v", user["subscriptionExpiryDate"])
	}
	// Fields outside the subscription state are untouched.
	if user["fullName"] != "Juan Perez" {
		t.Errorf("fullName clobbered: got %v", user["fullName"])
	}
}

func TestValidatePurchase_GracePeriodIsActive(t *testing.T) {
	s := newTestStore(t)
	ownerUID, _ := seedOwnerAndGroup(t, s)
	srv := fakePublisher(t, billing.StateGracePeriod)
	svc := NewBillingService(s, billing.NewHTTPVerifier(srv.URL, srv.Client()))

	req := validPurchase()
	req.SubscriptionID = "club_elite_mensual"
	plan, err := svc.ValidatePurchase(context.Background(), auth.Caller{UID: ownerUID}, req)
	if err != nil {
		t.Fatalf("ValidatePurchase failed: %v", err)
	}
	if plan != "elite" {
		t.Errorf("plan: expected elite, got %q", plan)
	}
}

func TestValidatePurchase_PendingRejected(t *testing.T) {
	s := newTestStore(t)
	ownerUID, _ := seedOwnerAndGroup(t, s)
	srv := fakePublisher(t, billing.StatePending)
	svc := NewBillingService(s, billing.NewHTTPVerifier(srv.URL, srv.Client()))

	_, err := svc.ValidatePurchase(context.Background(), auth.Caller{UID: ownerUID}, validPurchase())
	assertCode(t, err, connect.CodeFailedPrecondition)

	// The plan stays where it was.
	user := getDoc(t, s, store.CollectionUsers, ownerUID)
	if user["plan"] != "iniciacion" {
		t.Errorf("plan changed on a rejected purchase: got %v", user["plan"])
	}
}

func TestValidatePurchase_VerifierFailureIsInternal(t *testing.T) {
	s := newTestStore(t)
	ownerUID, _ := seedOwnerAndGroup(t, s)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	svc := NewBillingService(s, billing.NewHTTPVerifier(srv.URL, srv.Client()))

	_, err := svc.ValidatePurchase(context.Background(), auth.Caller{UID: ownerUID}, validPurchase())
	assertCode(t, err, connect.CodeInternal)
}

func TestValidatePurchase_ArgumentErrors(t *testing.T) {
	s := newTestStore(t)
	srv := fakePublisher(t, billing.StateReceived)
	svc := NewBillingService(s, billing.NewHTTPVerifier(srv.URL, srv.Client()))
	ctx := context.Background()

	_, err := svc.ValidatePurchase(ctx, auth.Caller{}, validPurchase())
	assertCode(t, err, connect.CodeUnauthenticated)

	for _, mutate := range []func(*PurchaseRequest){
		func(r *PurchaseRequest) { r.PackageName = "" },
		func(r *PurchaseRequest) { r.SubscriptionID = "" },
		func(r *PurchaseRequest) { r.PurchaseToken = "" },
	} {
		req := validPurchase()
		mutate(&req)
		_, err := svc.ValidatePurchase(ctx, auth.Caller{UID: "u1"}, req)
		assertCode(t, err, connect.CodeInvalidArgument)
	}
}
