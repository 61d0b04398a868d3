package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"herdwatch/internal/types"
)

type fakeDirectory struct {
	byStatus map[types.UserStatus][]int64
	calls    int
}

func (f *fakeDirectory) UserIDs(ctx context.Context, min types.UserStatus) ([]int64, error) {
	f.calls++
	return f.byStatus[min], nil
}

func TestStatusChangeMessageTable(t *testing.T) {
	cases := []struct {
		name string
		prev types.UserStatus
		next types.UserStatus
		want string
	}{
		{"request declined", types.StatusPendingApprove, types.StatusRefused, "declined"},
		{"blocked", types.StatusApprovedUser, types.StatusRefused, "blocked"},
		{"admin blocked", types.StatusAdministrator, types.StatusRefused, "blocked"},
		{"request approved", types.StatusPendingApprove, types.StatusApprovedUser, "approved"},
		{"re-approved after refusal", types.StatusRefused, types.StatusApprovedUser, "approved"},
		{"admin revoked", types.StatusAdministrator, types.StatusApprovedUser, "revoked"},
		{"admin granted", types.StatusApprovedUser, types.StatusAdministrator, "granted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &UserStatusChange{UserID: 7, Previous: tc.prev, New: tc.next}
			msg, err := n.Content()
			if err != nil {
				t.Fatalf("Content(%s -> %s): %v", tc.prev, tc.next, err)
			}
			if !strings.Contains(msg, tc.want) {
				t.Fatalf("message %q does not mention %q", msg, tc.want)
			}
		})
	}
}

func TestStatusChangeInvalidTransition(t *testing.T) {
	cases := []struct {
		prev types.UserStatus
		next types.UserStatus
	}{
		{types.StatusApprovedUser, types.StatusPendingApprove},
		{types.StatusRefused, types.StatusPendingApprove},
		{types.UserStatus(42), types.StatusApprovedUser},
		{types.StatusApprovedUser, types.UserStatus(42)},
	}
	for _, tc := range cases {
		n := &UserStatusChange{UserID: 7, Previous: tc.prev, New: tc.next}
		_, err := n.Content()
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("transition %s -> %s: expected InvalidTransitionError, got %v", tc.prev, tc.next, err)
		}
	}
}

func TestStatusChangeRecipientsIsSubjectOnly(t *testing.T) {
	dir := &fakeDirectory{}
	n := &UserStatusChange{UserID: 42, Previous: types.StatusPendingApprove, New: types.StatusApprovedUser}
	got, err := n.Recipients(context.Background(), Resolver{Directory: dir})
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected [42], got %v", got)
	}
	if dir.calls != 0 {
		t.Fatalf("status change must not query the directory")
	}
}

func TestNewUserButtonsAndRecipients(t *testing.T) {
	n := &NewUser{UserID: 99, Username: "farmer"}

	buttons := n.Buttons()
	if len(buttons) != 1 || len(buttons[0]) != 2 {
		t.Fatalf("expected one row of two buttons, got %v", buttons)
	}
	if buttons[0][0].Callback != "/approve 99" || buttons[0][1].Callback != "/refuse 99" {
		t.Fatalf("unexpected callbacks: %q, %q", buttons[0][0].Callback, buttons[0][1].Callback)
	}

	dir := &fakeDirectory{byStatus: map[types.UserStatus][]int64{
		types.StatusAdministrator: {1, 2},
	}}
	got, err := n.Recipients(context.Background(), Resolver{Directory: dir})
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the administrators, got %v", got)
	}
}
