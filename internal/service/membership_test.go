package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/identity"
	"github.com/bardofig/roozterfaceapp/internal/models"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

func newMembership(s store.Store) *MembershipService {
	return NewMembershipService(s, identity.NewStoreProvider(s))
}

func seedInvitee(t *testing.T, s store.Store) string {
	t.Helper()
	seedDoc(t, s, store.CollectionUsers, "u-invitee", store.Document{
		"fullName": "Maria Lopez",
		"email":    "maria@example.com",
		"groupIds": []any{},
		"plan":     "iniciacion",
	})
	return "u-invitee"
}

func TestInvite_RecordsPendingInvitation(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)

	err := svc.Invite(context.Background(), auth.Caller{UID: ownerUID}, groupID, "maria@example.com", "member")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	var inv models.Invitation
	if err := store.Decode(getDoc(t, s, store.CollectionInvitations, inviteeUID), &inv); err != nil {
		t.Fatalf("decode invitation: %v", err)
	}
	pending, ok := inv.Pending[groupID]
	if !ok {
		t.Fatal("expected a pending invitation for the gallera")
	}
	if pending.Role != "member" {
		t.Errorf("role: expected member, got %q", pending.Role)
	}
	if pending.GroupName != "La Victoria" {
		t.Errorf("groupName: expected 'La Victoria', got %q", pending.GroupName)
	}
	if pending.InviterName != "Juan Perez" {
		t.Errorf("inviterName: expected 'Juan Perez', got %q", pending.InviterName)
	}
	if pending.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestInvite_RepeatOverwrites(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)
	ctx := context.Background()
	caller := auth.Caller{UID: ownerUID}

	if err := svc.Invite(ctx, caller, groupID, "maria@example.com", "member"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := svc.Invite(ctx, caller, groupID, "maria@example.com", "manager"); err != nil {
		t.Fatalf("repeat Invite failed: %v", err)
	}

	var inv models.Invitation
	if err := store.Decode(getDoc(t, s, store.CollectionInvitations, inviteeUID), &inv); err != nil {
		t.Fatalf("decode invitation: %v", err)
	}
	if len(inv.Pending) != 1 {
		t.Fatalf("expected exactly one pending invite, got %d", len(inv.Pending))
	}
	if inv.Pending[groupID].Role != "manager" {
		t.Errorf("expected last write to win, got role %q", inv.Pending[groupID].Role)
	}
}

func TestInvite_Errors(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	seedInvitee(t, s)
	svc := newMembership(s)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller auth.Caller
		group  string
		email  string
		want   connect.Code
	}{
		{"unauthenticated", auth.Caller{}, groupID, "maria@example.com", connect.CodeUnauthenticated},
		{"non-owner", auth.Caller{UID: "stranger"}, groupID, "maria@example.com", connect.CodePermissionDenied},
		{"unknown gallera", auth.Caller{UID: ownerUID}, "missing", "maria@example.com", connect.CodeNotFound},
		{"unknown email", auth.Caller{UID: ownerUID}, groupID, "nobody@example.com", connect.CodeNotFound},
		{"self invite", auth.Caller{UID: ownerUID}, groupID, "juan@example.com", connect.CodeInvalidArgument},
		{"missing email", auth.Caller{UID: ownerUID}, groupID, "", connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Invite(ctx, tt.caller, tt.group, tt.email, "member")
			assertCode(t, err, tt.want)
		})
	}
}

func TestAccept_CommitsAllThree(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)
	ctx := context.Background()

	if err := svc.Invite(ctx, auth.Caller{UID: ownerUID}, groupID, "maria@example.com", "manager"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := svc.Accept(ctx, auth.Caller{UID: inviteeUID}, groupID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	var group models.Group
	if err := store.Decode(getDoc(t, s, store.CollectionGroups, groupID), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if group.Members[inviteeUID] != "manager" {
		t.Errorf("expected member with role manager, got %q", group.Members[inviteeUID])
	}

	var user models.User
	if err := store.Decode(getDoc(t, s, store.CollectionUsers, inviteeUID), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if !user.InGroup(groupID) {
		t.Error("expected groupIds to contain the gallera")
	}

	// The invitation held only this entry, so the document is gone.
	assertMissing(t, s, store.CollectionInvitations, inviteeUID)
}

func TestAccept_NoInvitation(t *testing.T) {
	s := newTestStore(t)
	_, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)

	err := svc.Accept(context.Background(), auth.Caller{UID: inviteeUID}, groupID)
	assertCode(t, err, connect.CodeNotFound)
}

func TestAccept_GroupGone_NoVisibleEffect(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)
	ctx := context.Background()

	if err := svc.Invite(ctx, auth.Caller{UID: ownerUID}, groupID, "maria@example.com", "member"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := s.Delete(ctx, store.CollectionGroups, groupID); err != nil {
		t.Fatalf("delete group: %v", err)
	}

	err := svc.Accept(ctx, auth.Caller{UID: inviteeUID}, groupID)
	assertCode(t, err, connect.CodeFailedPrecondition)

	// All or nothing: the user gained no membership, the invite survives.
	var user models.User
	if err := store.Decode(getDoc(t, s, store.CollectionUsers, inviteeUID), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.InGroup(groupID) {
		t.Error("groupIds must be unchanged after a failed accept")
	}
	var inv models.Invitation
	if err := store.Decode(getDoc(t, s, store.CollectionInvitations, inviteeUID), &inv); err != nil {
		t.Fatalf("decode invitation: %v", err)
	}
	if _, ok := inv.Pending[groupID]; !ok {
		t.Error("invitation must be unchanged after a failed accept")
	}
}

func TestDecline_RemovesOnlyThatEntry(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	seedDoc(t, s, store.CollectionGroups, "g2", store.Document{
		"ownerId": ownerUID,
		"name":    "Segunda",
		"members": map[string]any{ownerUID: "owner"},
	})
	svc := newMembership(s)
	ctx := context.Background()

	caller := auth.Caller{UID: ownerUID}
	if err := svc.Invite(ctx, caller, groupID, "maria@example.com", "member"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := svc.Invite(ctx, caller, "g2", "maria@example.com", "member"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	if err := svc.Decline(ctx, auth.Caller{UID: inviteeUID}, groupID); err != nil {
		t.Fatalf("Decline failed: %v", err)
	}

	var inv models.Invitation
	if err := store.Decode(getDoc(t, s, store.CollectionInvitations, inviteeUID), &inv); err != nil {
		t.Fatalf("decode invitation: %v", err)
	}
	if _, ok := inv.Pending[groupID]; ok {
		t.Error("declined entry still present")
	}
	if _, ok := inv.Pending["g2"]; !ok {
		t.Error("other pending invite must survive")
	}

	// Membership never changed.
	var group models.Group
	if err := store.Decode(getDoc(t, s, store.CollectionGroups, groupID), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if group.IsMember(inviteeUID) {
		t.Error("decline must not grant membership")
	}
}

func TestDecline_AlreadyGoneIsSuccess(t *testing.T) {
	s := newTestStore(t)
	_, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)

	if err := svc.Decline(context.Background(), auth.Caller{UID: inviteeUID}, groupID); err != nil {
		t.Errorf("expected declining a missing invitation to succeed, got %v", err)
	}
}

func TestRemoveMember_Commits(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	inviteeUID := seedInvitee(t, s)
	svc := newMembership(s)
	ctx := context.Background()

	if err := svc.Invite(ctx, auth.Caller{UID: ownerUID}, groupID, "maria@example.com", "member"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := svc.Accept(ctx, auth.Caller{UID: inviteeUID}, groupID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if err := svc.RemoveMember(ctx, auth.Caller{UID: ownerUID}, groupID, inviteeUID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	var group models.Group
	if err := store.Decode(getDoc(t, s, store.CollectionGroups, groupID), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if group.IsMember(inviteeUID) {
		t.Error("member still present after removal")
	}
	var user models.User
	if err := store.Decode(getDoc(t, s, store.CollectionUsers, inviteeUID), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.InGroup(groupID) {
		t.Error("groupIds still references the gallera after removal")
	}
}

func TestRemoveMember_Errors(t *testing.T) {
	s := newTestStore(t)
	ownerUID, groupID := seedOwnerAndGroup(t, s)
	svc := newMembership(s)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller auth.Caller
		member string
		want   connect.Code
	}{
		{"unauthenticated", auth.Caller{}, "anyone", connect.CodeUnauthenticated},
		{"non-owner caller", auth.Caller{UID: "stranger"}, ownerUID, connect.CodePermissionDenied},
		{"removing the owner", auth.Caller{UID: ownerUID}, ownerUID, connect.CodeInvalidArgument},
		{"not a member", auth.Caller{UID: ownerUID}, "stranger", connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RemoveMember(ctx, tt.caller, groupID, tt.member)
			assertCode(t, err, tt.want)
		})
	}

	// The owner is still in place after every rejected attempt.
	var group models.Group
	if err := store.Decode(getDoc(t, s, store.CollectionGroups, groupID), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if !group.IsMember(ownerUID) {
		t.Error("owner must never be removable from members")
	}
}
