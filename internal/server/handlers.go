package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/service"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// eventEnvelope is the wire form of one change notification.
type eventEnvelope struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Before     store.Document `json:"before,omitempty"`
	After      store.Document `json:"after,omitempty"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if s.eventsToken == "" || subtle.ConstantTimeCompare(
		[]byte(r.Header.Get("X-Events-Token")), []byte(s.eventsToken)) != 1 {
		writeError(w, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid events token")))
		return
	}

	var env eventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed event envelope")))
		return
	}
	if env.Collection == "" || env.ID == "" {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("collection and id are required")))
		return
	}

	s.dispatcher.Dispatch(r.Context(), events.Event{
		Collection: env.Collection,
		ID:         env.ID,
		Before:     env.Before,
		After:      env.After,
	})
	w.WriteHeader(http.StatusAccepted)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")

	if err := s.membership.Invite(r.Context(), caller, groupID, req.Email, req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")

	if err := s.membership.Accept(r.Context(), caller, groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")

	if err := s.membership.Decline(r.Context(), caller, groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")
	memberID := chi.URLParam(r, "memberID")

	if err := s.membership.RemoveMember(r.Context(), caller, groupID, memberID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// entryRequest is the wire form of a manual ledger entry. Amount is a
// json.Number so both 12.5 and "12.5" coerce.
type entryRequest struct {
	Type         string      `json:"type"`
	Category     string      `json:"category"`
	Amount       json.Number `json:"amount"`
	Date         string      `json:"date"`
	Description  string      `json:"description"`
	RelatedDocID string      `json:"relatedDocId"`
}

func (req entryRequest) toInput() (service.EntryInput, error) {
	in := service.EntryInput{
		Type:         req.Type,
		Category:     req.Category,
		Description:  req.Description,
		RelatedDocID: req.RelatedDocID,
	}
	if req.Amount != "" {
		amount, err := req.Amount.Float64()
		if err != nil {
			return in, connect.NewError(connect.CodeInvalidArgument, errors.New("amount must be a number"))
		}
		in.Amount = amount
	}
	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return in, connect.NewError(connect.CodeInvalidArgument, errors.New("date must be RFC 3339"))
		}
		in.Date = date
	}
	return in, nil
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")

	entryID, err := s.ledger.AddExpense(r.Context(), caller, groupID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": entryID})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")
	entryID := chi.URLParam(r, "entryID")

	if err := s.ledger.UpdateExpense(r.Context(), caller, groupID, entryID, in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")
	entryID := chi.URLParam(r, "entryID")

	if err := s.ledger.DeleteTransaction(r.Context(), caller, groupID, entryID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type fightResultRequest struct {
	Result json.Number `json:"result"`
}

func (s *Server) handleFightResult(w http.ResponseWriter, r *http.Request) {
	var req fightResultRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := req.Result.Float64()
	if err != nil {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("result must be a number")))
		return
	}

	caller := auth.CallerFrom(r.Context())
	groupID := chi.URLParam(r, "groupID")
	outcomeID := chi.URLParam(r, "outcomeID")

	if err := s.ledgerSync.RecordFightResult(r.Context(), caller, groupID, outcomeID, result); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type purchaseRequest struct {
	PackageName    string `json:"packageName"`
	SubscriptionID string `json:"subscriptionId"`
	PurchaseToken  string `json:"purchaseToken"`
}

func (s *Server) handleValidatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := auth.CallerFrom(r.Context())
	plan, err := s.billing.ValidatePurchase(r.Context(), caller, service.PurchaseRequest{
		PackageName:    req.PackageName,
		SubscriptionID: req.SubscriptionID,
		PurchaseToken:  req.PurchaseToken,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": plan})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if s.adminUID == "" || caller.UID != s.adminUID {
		writeError(w, connect.NewError(connect.CodePermissionDenied, errors.New("reconciliation is restricted to the administrator")))
		return
	}

	report, err := s.reconciler.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps the typed caller-facing errors to HTTP statuses. Anything
// untyped has already been collapsed by the services; mapping it to internal
// here is the safety net.
func writeError(w http.ResponseWriter, err error) {
	code := connect.CodeInternal
	message := "an internal error occurred"

	var ce *connect.Error
	if errors.As(err, &ce) {
		code = ce.Code()
		message = ce.Message()
	}

	writeJSON(w, statusFromCode(code), map[string]string{
		"code":    code.String(),
		"message": message,
	})
}

func statusFromCode(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
