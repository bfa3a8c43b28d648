package models

import (
	"strings"
	"time"
)

// Ledger entry types.
const (
	EntryIncome  = "income"
	EntryExpense = "expense"
)

// Prefixes of machine-owned ledger entry ids. Manual entries use random UUIDs;
// the two id spaces must never collide, so the CRUD gateway rejects these.
const (
	SaleEntryPrefix  = "sale_"
	FightEntryPrefix = "fight_"
)

// LedgerEntry is a financial record attributed to a Group.
//
// Manual entries are created through the CRUD gateway with arbitrary ids.
// Derived entries use deterministic ids (sale_<roosterId>, fight_<outcomeId>)
// and are exclusively owned by the ledger synchronizer. Amount is always
// positive; the sign lives in Type.
type LedgerEntry struct {
	// ID is the document id (not stored in the payload).
	ID string `json:"-"`

	GroupID      string    `json:"groupId"`
	Type         string    `json:"type"`
	Category     string    `json:"category"`
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description,omitempty"`
	RelatedDocID string    `json:"relatedDocId,omitempty"`
}

// SaleEntryID returns the deterministic ledger id mirroring a rooster sale.
func SaleEntryID(roosterID string) string { return SaleEntryPrefix + roosterID }

// FightEntryID returns the deterministic ledger id mirroring a fight outcome.
func FightEntryID(outcomeID string) string { return FightEntryPrefix + outcomeID }

// IsDerivedEntryID reports whether id belongs to the machine-owned id space.
func IsDerivedEntryID(id string) bool {
	return strings.HasPrefix(id, SaleEntryPrefix) || strings.HasPrefix(id, FightEntryPrefix)
}
