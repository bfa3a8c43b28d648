// Package models defines the core domain models for the gallera platform.
//
// # Collections
//
//   - User: account profile, plan/subscription state and the groupIds inverse index
//   - Group: a gallera; its Members map is the authorization source of truth
//   - Rooster: the primary managed record, transitively owned by a Group
//   - Listing: derived, read-optimized showcase projection of a Rooster for sale
//   - LedgerEntry: income/expense record attributed to a Group
//   - Invitation: pending membership offers addressed to one user
//
// # Design Principles
//
// 1. **Documents, not rows**: every model round-trips through a JSON document in
// the store; document ids live outside the payload (json:"-").
// 2. **Avoid circular references**: relationships use ID strings, never pointers.
// 3. **Derived records are machine-owned**: Listing and the sale_/fight_ ledger
// entries are exclusively rewritten by the synchronizers and never edited by hand.
package models
