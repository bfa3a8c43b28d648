// Package derive holds the pure derivation rules shared by the reactive
// synchronizers: when a showcase listing exists, when a sale mirrors into the
// ledger, and how a subscription product maps to a plan. Keeping these free of
// store access makes the rules trivially testable.
package derive

import (
	"strings"
	"time"

	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// ShowcaseVisible reports whether a rooster snapshot qualifies for a public
// listing: for sale and explicitly shown in the showcase.
func ShowcaseVisible(doc store.Document) bool {
	return String(doc, "status") == models.StatusForSale && Bool(doc, "showInShowcase")
}

// SaleEntry derives the ledger mirror for a sold rooster. The second return is
// false when the sold condition does not hold (status != sold, price missing
// or non-positive, or date missing), in which case the mirror must be deleted.
func SaleEntry(roosterID string, doc store.Document) (models.LedgerEntry, bool) {
	price, priceOK := Float(doc, "salePrice")
	date, dateOK := Time(doc, "saleDate")
	if String(doc, "status") != models.StatusSold || !priceOK || price <= 0 || !dateOK {
		return models.LedgerEntry{}, false
	}
	return models.LedgerEntry{
		ID:           models.SaleEntryID(roosterID),
		GroupID:      String(doc, "groupId"),
		Type:         models.EntryIncome,
		Category:     "sale",
		Amount:       price,
		Date:         date,
		Description:  "Sale of " + String(doc, "name"),
		RelatedDocID: roosterID,
	}, true
}

// FightEntry derives the ledger mirror for a fight outcome with the given
// signed net result. A zero result yields no entry (delete the mirror);
// otherwise the sign selects the entry type and the amount is its magnitude.
func FightEntry(groupID, outcomeID string, result float64, date time.Time) (models.LedgerEntry, bool) {
	if result == 0 {
		return models.LedgerEntry{}, false
	}
	entryType := models.EntryIncome
	amount := result
	if result < 0 {
		entryType = models.EntryExpense
		amount = -result
	}
	return models.LedgerEntry{
		ID:           models.FightEntryID(outcomeID),
		GroupID:      groupID,
		Type:         entryType,
		Category:     "fight",
		Amount:       amount,
		Date:         date,
		RelatedDocID: outcomeID,
	}, true
}

// PlanForSubscription maps a subscription product id to the plan it grants.
func PlanForSubscription(subscriptionID string) string {
	switch {
	case strings.HasPrefix(subscriptionID, "maestro_criador"):
		return models.PlanMaestro
	case strings.HasPrefix(subscriptionID, "club_elite"):
		return models.PlanElite
	default:
		return models.PlanIniciacion
	}
}

// String returns the string value of a document field, or "" if absent, null
// or of another type.
func String(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

// Bool returns the bool value of a document field, defaulting to false.
func Bool(doc store.Document, key string) bool {
	v, _ := doc[key].(bool)
	return v
}

// Float returns the numeric value of a document field. JSON numbers decode as
// float64; anything else (including null and absent) reports ok=false.
func Float(doc store.Document, key string) (float64, bool) {
	v, ok := doc[key].(float64)
	return v, ok
}

// Int64 returns the numeric value of a document field truncated to int64.
func Int64(doc store.Document, key string) (int64, bool) {
	v, ok := Float(doc, key)
	return int64(v), ok
}

// Time parses an RFC 3339 document field into a time.Time.
func Time(doc store.Document, key string) (time.Time, bool) {
	raw, ok := doc[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
