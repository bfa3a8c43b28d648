// Package service implements the reactive synchronizers and the authenticated
// callables of the gallera platform.
//
// Error discipline: caller-facing failures (unauthenticated, invalid-argument,
// permission-denied, not-found, failed-precondition) are *connect.Error values
// that propagate verbatim with a readable message. Everything else (store
// unavailable, unexpected document shapes, external API failures) is logged
// with context and collapsed to a generic internal error so no detail leaks.
// Reactive handlers never raise at all: they log and fail safe to absent.
package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

var errInternal = errors.New("an internal error occurred")

// asCallerError passes typed caller-facing errors through unchanged and
// collapses anything else to a logged, generic internal error.
func asCallerError(err error, op string, args ...any) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	slog.Error(op+" failed", append(args, "error", err)...)
	return connect.NewError(connect.CodeInternal, errInternal)
}

// getGroup reads and decodes a gallera inside a transaction, mapping absence
// to a caller-facing not-found.
func getGroup(tx store.Tx, groupID string) (*models.Group, error) {
	doc, err := tx.Get(store.CollectionGroups, groupID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("gallera not found"))
	}
	if err != nil {
		return nil, err
	}
	group := &models.Group{ID: groupID}
	if err := store.Decode(doc, group); err != nil {
		return nil, err
	}
	if group.Members == nil {
		group.Members = map[string]string{}
	}
	return group, nil
}

// getUser reads and decodes a user inside a transaction. Absence propagates
// as store.ErrNotFound for the caller to map.
func getUser(tx store.Tx, userID string) (*models.User, error) {
	doc, err := tx.Get(store.CollectionUsers, userID)
	if err != nil {
		return nil, err
	}
	user := &models.User{ID: userID}
	if err := store.Decode(doc, user); err != nil {
		return nil, err
	}
	return user, nil
}

// getInvitation reads the invitation document for a user, returning an empty
// one if absent.
func getInvitation(tx store.Tx, userID string) (*models.Invitation, error) {
	inv := &models.Invitation{ID: userID, Pending: map[string]models.PendingInvite{}}
	doc, err := tx.Get(store.CollectionInvitations, userID)
	if errors.Is(err, store.ErrNotFound) {
		return inv, nil
	}
	if err != nil {
		return nil, err
	}
	if err := store.Decode(doc, inv); err != nil {
		return nil, err
	}
	if inv.Pending == nil {
		inv.Pending = map[string]models.PendingInvite{}
	}
	return inv, nil
}
