package notification

import (
	"context"
	"fmt"

	"herdwatch/internal/types"
)

// NewUser asks the administrators to approve or refuse a fresh signup.
type NewUser struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (n *NewUser) Kind() Kind { return KindNewUser }

func (n *NewUser) Content() (string, error) {
	return fmt.Sprintf("New access request from @%s.", n.Username), nil
}

func (n *NewUser) Buttons() [][]Button {
	return [][]Button{
		{
			{Text: "Approve", Callback: fmt.Sprintf("/approve %d", n.UserID)},
			{Text: "Refuse", Callback: fmt.Sprintf("/refuse %d", n.UserID)},
		},
	}
}

func (n *NewUser) Recipients(ctx context.Context, r Resolver) ([]int64, error) {
	return r.Directory.UserIDs(ctx, types.StatusAdministrator)
}

// InvalidTransitionError marks a (previous, new) status pair that has
// no message defined. It fails the single notification loudly instead
// of falling through to a default.
type InvalidTransitionError struct {
	Previous types.UserStatus
	New      types.UserStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no message for status transition %s -> %s", e.Previous, e.New)
}

// UserStatusChange tells the subject about a change of their own
// status. No buttons; the subject is the only recipient.
type UserStatusChange struct {
	UserID   int64            `json:"user_id"`
	Previous types.UserStatus `json:"previous"`
	New      types.UserStatus `json:"new"`
}

func (n *UserStatusChange) Kind() Kind { return KindUserStatusChange }

// Content maps every reachable (previous, new) pair to exactly one
// message. A pair outside the table is an InvalidTransitionError.
func (n *UserStatusChange) Content() (string, error) {
	switch {
	case n.New == types.StatusRefused && n.Previous >= types.StatusRefused && n.Previous <= types.StatusPendingApprove:
		return "Your access request was declined.", nil
	case n.New == types.StatusRefused && n.Previous > types.StatusPendingApprove && n.Previous <= types.StatusAdministrator:
		return "You have been blocked by an administrator.", nil
	case n.New == types.StatusApprovedUser && n.Previous >= types.StatusRefused && n.Previous <= types.StatusApprovedUser:
		return "Your access request was approved by an administrator.", nil
	case n.New == types.StatusApprovedUser && n.Previous == types.StatusAdministrator:
		return "Your administrator rights were revoked.", nil
	case n.New == types.StatusAdministrator && n.Previous >= types.StatusRefused && n.Previous <= types.StatusAdministrator:
		return "You were granted administrator rights.", nil
	default:
		return "", &InvalidTransitionError{Previous: n.Previous, New: n.New}
	}
}

func (n *UserStatusChange) Buttons() [][]Button { return nil }

func (n *UserStatusChange) Recipients(ctx context.Context, r Resolver) ([]int64, error) {
	return []int64{n.UserID}, nil
}
