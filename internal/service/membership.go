package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/identity"
	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// MembershipService is the transactional state machine over Group.members,
// User.groupIds and Invitation.pending_invitations. Permission checks always
// re-verify against the transaction's own read, never a prior one, so a
// concurrent ownership change cannot slip a stale authorization through.
type MembershipService struct {
	store    store.Store
	identity identity.Provider
}

// NewMembershipService creates a membership coordinator.
func NewMembershipService(s store.Store, p identity.Provider) *MembershipService {
	return &MembershipService{store: s, identity: p}
}

// Invite records a pending membership offer for the user registered under
// invitedEmail. Only the gallera owner may invite; inviting yourself is
// rejected; a repeat invite for the same (user, gallera) pair overwrites the
// earlier one.
func (s *MembershipService) Invite(ctx context.Context, caller auth.Caller, groupID, invitedEmail, role string) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" || invitedEmail == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId and email are required"))
	}
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleManager {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("role must be member or manager"))
	}

	invitedUID, err := s.identity.LookupByEmail(ctx, invitedEmail)
	if errors.Is(err, store.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, errors.New("no user registered under that email"))
	}
	if err != nil {
		return asCallerError(err, "invite", "group_id", groupID)
	}
	if invitedUID == caller.UID {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("cannot invite yourself"))
	}

	err = s.store.RunTransaction(ctx, func(tx store.Tx) error {
		group, err := getGroup(tx, groupID)
		if err != nil {
			return err
		}
		if caller.UID != group.OwnerID {
			return connect.NewError(connect.CodePermissionDenied, errors.New("only the gallera owner can invite members"))
		}

		inviterName := caller.Email
		if inviter, err := getUser(tx, caller.UID); err == nil && inviter.FullName != "" {
			inviterName = inviter.FullName
		}

		inv, err := getInvitation(tx, invitedUID)
		if err != nil {
			return err
		}
		// Last write wins for a repeat invite to the same pair.
		inv.Pending[groupID] = models.PendingInvite{
			InviterName: inviterName,
			GroupName:   group.Name,
			Role:        role,
			Timestamp:   time.Now().UTC(),
		}
		doc, err := store.Encode(inv)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionInvitations, invitedUID, doc)
	})
	if err != nil {
		return asCallerError(err, "invite", "group_id", groupID, "invited_uid", invitedUID)
	}

	slog.Info("invitation recorded", "group_id", groupID, "invited_uid", invitedUID, "role", role)
	return nil
}

// Accept commits the caller's pending invitation for groupID in one bounded
// transaction: member added, groupIds updated and invitation cleared, all
// three or none.
func (s *MembershipService) Accept(ctx context.Context, caller auth.Caller, groupID string) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId is required"))
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		inv, err := getInvitation(tx, caller.UID)
		if err != nil {
			return err
		}
		pending, ok := inv.Pending[groupID]
		if !ok {
			return connect.NewError(connect.CodeNotFound, errors.New("no pending invitation for this gallera"))
		}

		group, err := getGroup(tx, groupID)
		if err != nil {
			var ce *connect.Error
			if errors.As(err, &ce) && ce.Code() == connect.CodeNotFound {
				return connect.NewError(connect.CodeFailedPrecondition, errors.New("gallera no longer exists"))
			}
			return err
		}

		user, err := getUser(tx, caller.UID)
		if errors.Is(err, store.ErrNotFound) {
			return connect.NewError(connect.CodeFailedPrecondition, errors.New("user profile no longer exists"))
		}
		if err != nil {
			return err
		}

		group.Members[caller.UID] = pending.Role
		groupDoc, err := store.Encode(group)
		if err != nil {
			return err
		}
		if err := tx.Set(store.CollectionGroups, groupID, groupDoc); err != nil {
			return err
		}

		if !user.InGroup(groupID) {
			user.GroupIDs = append(user.GroupIDs, groupID)
		}
		userDoc, err := store.Encode(user)
		if err != nil {
			return err
		}
		if err := tx.Set(store.CollectionUsers, caller.UID, userDoc); err != nil {
			return err
		}

		delete(inv.Pending, groupID)
		if len(inv.Pending) == 0 {
			return tx.Delete(store.CollectionInvitations, caller.UID)
		}
		invDoc, err := store.Encode(inv)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionInvitations, caller.UID, invDoc)
	})
	if err != nil {
		return asCallerError(err, "accept invitation", "group_id", groupID, "uid", caller.UID)
	}

	slog.Info("invitation accepted", "group_id", groupID, "uid", caller.UID)
	return nil
}

// Decline deletes the caller's pending invitation for groupID. Declining an
// invitation that is already gone is success.
func (s *MembershipService) Decline(ctx context.Context, caller auth.Caller, groupID string) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId is required"))
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		inv, err := getInvitation(tx, caller.UID)
		if err != nil {
			return err
		}
		if _, ok := inv.Pending[groupID]; !ok {
			return nil
		}
		delete(inv.Pending, groupID)
		if len(inv.Pending) == 0 {
			return tx.Delete(store.CollectionInvitations, caller.UID)
		}
		doc, err := store.Encode(inv)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionInvitations, caller.UID, doc)
	})
	if err != nil {
		return asCallerError(err, "decline invitation", "group_id", groupID, "uid", caller.UID)
	}

	slog.Info("invitation declined", "group_id", groupID, "uid", caller.UID)
	return nil
}

// RemoveMember atomically removes a member from the gallera and drops the
// gallera from the member's inverse index. Only the owner may remove, and the
// owner can never be removed.
func (s *MembershipService) RemoveMember(ctx context.Context, caller auth.Caller, groupID, memberID string) error {
	if caller.UID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if groupID == "" || memberID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("groupId and memberId are required"))
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		group, err := getGroup(tx, groupID)
		if err != nil {
			return err
		}
		// Re-verified from this transaction's read, not a prior one.
		if caller.UID != group.OwnerID {
			return connect.NewError(connect.CodePermissionDenied, errors.New("only the gallera owner can remove members"))
		}
		if memberID == group.OwnerID {
			return connect.NewError(connect.CodeInvalidArgument, errors.New("the owner cannot be removed"))
		}
		if !group.IsMember(memberID) {
			return connect.NewError(connect.CodeNotFound, errors.New("user is not a member of this gallera"))
		}

		delete(group.Members, memberID)
		groupDoc, err := store.Encode(group)
		if err != nil {
			return err
		}
		if err := tx.Set(store.CollectionGroups, groupID, groupDoc); err != nil {
			return err
		}

		user, err := getUser(tx, memberID)
		if errors.Is(err, store.ErrNotFound) {
			// No inverse index left to repair.
			return nil
		}
		if err != nil {
			return err
		}
		kept := user.GroupIDs[:0]
		for _, id := range user.GroupIDs {
			if id != groupID {
				kept = append(kept, id)
			}
		}
		user.GroupIDs = kept
		userDoc, err := store.Encode(user)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionUsers, memberID, userDoc)
	})
	if err != nil {
		return asCallerError(err, "remove member", "group_id", groupID, "member_id", memberID)
	}

	slog.Info("member removed", "group_id", groupID, "member_id", memberID)
	return nil
}
