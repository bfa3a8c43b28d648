package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// Report summarizes one reconciliation pass.
type Report struct {
	Roosters          int `json:"roosters"`
	OrphanListings    int `json:"orphanListings"`
	OrphanSaleMirrors int `json:"orphanSaleMirrors"`
	IndexRepairs      int `json:"indexRepairs"`
}

// Reconciler re-enforces the cross-collection invariants as an idempotent
// repair/backfill job: listing and sale-mirror existence re-derived from every
// rooster, orphaned derived records removed, and the members/groupIds inverse
// indexes repaired. Useful after a notification outage dropped events.
type Reconciler struct {
	store     store.Store
	projector *ListingProjector
	ledger    *LedgerSync
}

// NewReconciler creates a reconciler reusing the reactive synchronizers.
func NewReconciler(s store.Store, projector *ListingProjector, ledger *LedgerSync) *Reconciler {
	return &Reconciler{store: s, projector: projector, ledger: ledger}
}

// Run performs one full pass. Per-document failures are logged and skipped;
// only scan failures abort the pass.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	roosters, err := r.store.All(ctx, store.CollectionRoosters)
	if err != nil {
		return report, fmt.Errorf("scan roosters: %w", err)
	}
	alive := make(map[string]bool, len(roosters))
	for _, snap := range roosters {
		alive[snap.ID] = true
		r.projector.Apply(ctx, snap.ID, snap.Data)
		r.ledger.Apply(ctx, snap.ID, snap.Data)
		report.Roosters++
	}

	listings, err := r.store.All(ctx, store.CollectionListings)
	if err != nil {
		return report, fmt.Errorf("scan showcase: %w", err)
	}
	for _, snap := range listings {
		if alive[snap.ID] {
			continue
		}
		if err := r.store.Delete(ctx, store.CollectionListings, snap.ID); err != nil {
			slog.Error("orphan listing delete failed", "listing_id", snap.ID, "error", err)
			continue
		}
		report.OrphanListings++
	}

	entries, err := r.store.All(ctx, store.CollectionTransactions)
	if err != nil {
		return report, fmt.Errorf("scan transactions: %w", err)
	}
	for _, snap := range entries {
		roosterID, ok := strings.CutPrefix(snap.ID, models.SaleEntryPrefix)
		if !ok || alive[roosterID] {
			continue
		}
		if err := r.store.Delete(ctx, store.CollectionTransactions, snap.ID); err != nil {
			slog.Error("orphan sale mirror delete failed", "entry_id", snap.ID, "error", err)
			continue
		}
		report.OrphanSaleMirrors++
	}

	repairs, err := r.repairIndexes(ctx)
	if err != nil {
		return report, err
	}
	report.IndexRepairs = repairs

	slog.Info("reconciliation complete",
		"roosters", report.Roosters,
		"orphan_listings", report.OrphanListings,
		"orphan_sale_mirrors", report.OrphanSaleMirrors,
		"index_repairs", report.IndexRepairs,
	)
	return report, nil
}

// repairIndexes restores the members/groupIds inverse-index invariant in both
// directions: every member gains the gallera in groupIds, and groupIds entries
// without a backing membership are dropped.
func (r *Reconciler) repairIndexes(ctx context.Context) (int, error) {
	repairs := 0

	groups, err := r.store.All(ctx, store.CollectionGroups)
	if err != nil {
		return repairs, fmt.Errorf("scan galleras: %w", err)
	}
	membership := make(map[string]map[string]bool) // uid -> group ids
	for _, snap := range groups {
		var group models.Group
		if err := store.Decode(snap.Data, &group); err != nil {
			slog.Error("gallera decode failed", "group_id", snap.ID, "error", err)
			continue
		}
		for uid := range group.Members {
			if membership[uid] == nil {
				membership[uid] = make(map[string]bool)
			}
			membership[uid][snap.ID] = true
		}
	}

	users, err := r.store.All(ctx, store.CollectionUsers)
	if err != nil {
		return repairs, fmt.Errorf("scan users: %w", err)
	}
	for _, snap := range users {
		var user models.User
		if err := store.Decode(snap.Data, &user); err != nil {
			slog.Error("user decode failed", "uid", snap.ID, "error", err)
			continue
		}

		want := membership[snap.ID]
		have := make(map[string]bool, len(user.GroupIDs))
		dirty := false
		kept := user.GroupIDs[:0]
		for _, id := range user.GroupIDs {
			if !want[id] {
				dirty = true
				continue
			}
			kept = append(kept, id)
			have[id] = true
		}
		user.GroupIDs = kept
		for id := range want {
			if !have[id] {
				user.GroupIDs = append(user.GroupIDs, id)
				dirty = true
			}
		}
		if !dirty {
			continue
		}

		// Touch only the index field; unrelated fields stay as they are.
		err = r.store.Update(ctx, store.CollectionUsers, snap.ID,
			store.Document{"groupIds": user.GroupIDs})
		if err != nil {
			slog.Error("inverse index repair failed", "uid", snap.ID, "error", err)
			continue
		}
		repairs++
	}

	return repairs, nil
}
