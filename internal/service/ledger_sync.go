package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/derive"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// LedgerSync keeps the deterministic-key ledger mirrors (sale_<roosterId>,
// fight_<outcomeId>) in sync with their deriving conditions. Mirrors exist iff
// the condition holds; everything else is a delete, and not-found on delete is
// success.
type LedgerSync struct {
	store store.Store
}

// NewLedgerSync creates a synchronizer writing through the given store.
func NewLedgerSync(s store.Store) *LedgerSync {
	return &LedgerSync{store: s}
}

// HandleRoosterEvent processes one rooster change event independently of the
// listing projector. It never raises to its invoker.
func (s *LedgerSync) HandleRoosterEvent(ctx context.Context, ev events.Event) {
	if ev.IsDelete() {
		s.RemoveSaleMirror(ctx, ev.ID)
		return
	}
	s.Apply(ctx, ev.ID, ev.After)
}

// Apply reconciles the sale mirror with a rooster after-snapshot. Idempotent;
// usable both reactively and from the repair job.
func (s *LedgerSync) Apply(ctx context.Context, roosterID string, after store.Document) {
	entry, ok := derive.SaleEntry(roosterID, after)
	if !ok {
		s.RemoveSaleMirror(ctx, roosterID)
		return
	}

	doc, err := store.Encode(entry)
	if err != nil {
		slog.Error("sale mirror encode failed", "rooster_id", roosterID, "error", err)
		return
	}
	if err := s.store.Merge(ctx, store.CollectionTransactions, entry.ID, doc); err != nil {
		// Never leave a possibly stale mirror behind.
		slog.Error("sale mirror upsert failed, removing", "rooster_id", roosterID, "error", err)
		s.RemoveSaleMirror(ctx, roosterID)
		return
	}
	slog.Info("sale mirror synced", "rooster_id", roosterID, "amount", entry.Amount)
}

// RemoveSaleMirror deletes the sale_<roosterId> entry. Absence is success.
func (s *LedgerSync) RemoveSaleMirror(ctx context.Context, roosterID string) {
	if err := s.store.Delete(ctx, store.CollectionTransactions, models.SaleEntryID(roosterID)); err != nil {
		slog.Error("sale mirror delete failed", "rooster_id", roosterID, "error", err)
	}
}

// RecordFightResult upserts or deletes the fight_<outcomeId> mirror for a
// signed net result. A positive result books income, a negative one an
// expense, and zero removes the mirror. The caller must be a current member
// of the gallera; the check runs inside the same transaction as the write.
func (s *LedgerSync) RecordFightResult(ctx context.Context, caller auth.Caller, groupID, outcomeID string, result float64) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" || outcomeID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId and outcomeId are required"))
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		group, err := getGroup(tx, groupID)
		if err != nil {
			return err
		}
		if !group.IsMember(caller.UID) {
			return connect.NewError(connect.CodePermissionDenied, errors.New("caller is not a member of this gallera"))
		}

		entry, ok := derive.FightEntry(groupID, outcomeID, result, time.Now().UTC())
		if !ok {
			return tx.Delete(store.CollectionTransactions, models.FightEntryID(outcomeID))
		}
		doc, err := store.Encode(entry)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionTransactions, entry.ID, doc)
	})
	if err != nil {
		return asCallerError(err, "record fight result", "outcome_id", outcomeID)
	}

	slog.Info("fight result recorded", "group_id", groupID, "outcome_id", outcomeID, "result", result)
	return nil
}
