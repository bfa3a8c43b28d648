package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// EntryInput carries the caller-supplied fields of a manual ledger entry.
type EntryInput struct {
	Type         string
	Category     string
	Amount       float64
	Date         time.Time
	Description  string
	RelatedDocID string
}

func (in EntryInput) validate() error {
	if in.Type != models.EntryIncome && in.Type != models.EntryExpense {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("type must be income or expense"))
	}
	if in.Category == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("category is required"))
	}
	if in.Amount <= 0 {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("amount must be a positive number"))
	}
	if in.Date.IsZero() {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("date is required"))
	}
	return nil
}

// LedgerService is the CRUD gateway for manually entered ledger entries. The
// membership check runs inside the same transaction as the write, so a
// concurrent removal cannot race a stale authorization. Derived entry ids
// (sale_*, fight_*) are machine-owned and rejected here.
type LedgerService struct {
	store store.Store
}

// NewLedgerService creates a ledger CRUD gateway.
func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{store: s}
}

// AddExpense creates a manual ledger entry and returns its id.
func (s *LedgerService) AddExpense(ctx context.Context, caller auth.Caller, groupID string, in EntryInput) (string, error) {
	if caller.UID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("groupId is required"))
	}
	if err := in.validate(); err != nil {
		return "", err
	}

	entryID := uuid.New().String()
	entry := models.LedgerEntry{
		ID:           entryID,
		GroupID:      groupID,
		Type:         in.Type,
		Category:     in.Category,
		Amount:       in.Amount,
		Date:         in.Date,
		Description:  in.Description,
		RelatedDocID: in.RelatedDocID,
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		if err := s.requireMember(tx, groupID, caller.UID); err != nil {
			return err
		}
		doc, err := store.Encode(entry)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionTransactions, entryID, doc)
	})
	if err != nil {
		return "", asCallerError(err, "add expense", "group_id", groupID)
	}

	slog.Info("ledger entry added", "group_id", groupID, "entry_id", entryID, "type", in.Type, "amount", in.Amount)
	return entryID, nil
}

// UpdateExpense rewrites the caller-editable fields of an existing manual
// entry.
func (s *LedgerService) UpdateExpense(ctx context.Context, caller auth.Caller, groupID, entryID string, in EntryInput) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" || entryID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId and entryId are required"))
	}
	if models.IsDerivedEntryID(entryID) {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("entry id is reserved for derived entries"))
	}
	if err := in.validate(); err != nil {
		return err
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		if err := s.requireMember(tx, groupID, caller.UID); err != nil {
			return err
		}
		existing, err := s.getEntry(tx, groupID, entryID)
		if err != nil {
			return err
		}
		existing.Type = in.Type
		existing.Category = in.Category
		existing.Amount = in.Amount
		existing.Date = in.Date
		existing.Description = in.Description
		existing.RelatedDocID = in.RelatedDocID
		doc, err := store.Encode(existing)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionTransactions, entryID, doc)
	})
	if err != nil {
		return asCallerError(err, "update expense", "group_id", groupID, "entry_id", entryID)
	}

	slog.Info("ledger entry updated", "group_id", groupID, "entry_id", entryID)
	return nil
}

// DeleteTransaction removes a manual ledger entry.
func (s *LedgerService) DeleteTransaction(ctx context.Context, caller auth.Caller, groupID, entryID string) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" || entryID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId and entryId are required"))
	}
	if models.IsDerivedEntryID(entryID) {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("entry id is reserved for derived entries"))
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		if err := s.requireMember(tx, groupID, caller.UID); err != nil {
			return err
		}
		if _, err := s.getEntry(tx, groupID, entryID); err != nil {
			return err
		}
		return tx.Delete(store.CollectionTransactions, entryID)
	})
	if err != nil {
		return asCallerError(err, "delete transaction", "group_id", groupID, "entry_id", entryID)
	}

	slog.Info("ledger entry deleted", "group_id", groupID, "entry_id", entryID)
	return nil
}

func (s *LedgerService) requireMember(tx store.Tx, groupID, uid string) error {
	group, err := getGroup(tx, groupID)
	if err != nil {
		return err
	}
	if !group.IsMember(uid) {
		return connect.NewError(connect.CodePermissionDenied, errors.New("caller is not a member of this gallera"))
	}
	return nil
}

// getEntry reads a manual entry and verifies it belongs to the gallera the
// caller was authorized against.
func (s *LedgerService) getEntry(tx store.Tx, groupID, entryID string) (*models.LedgerEntry, error) {
	doc, err := tx.Get(store.CollectionTransactions, entryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("ledger entry not found"))
	}
	if err != nil {
		return nil, err
	}
	entry := &models.LedgerEntry{ID: entryID}
	if err := store.Decode(doc, entry); err != nil {
		return nil, err
	}
	if entry.GroupID != groupID {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("ledger entry not found"))
	}
	return entry, nil
}
