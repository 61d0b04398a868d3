// Package notification defines the closed set of notification variants
// and their send-time resolution into concrete deliveries.
//
// A variant knows three things: its message text, its inline button
// grid and how to resolve its recipient list. Recipients are always
// resolved at send time against the current directory, never cached at
// creation time (directory membership may change in between).
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/types"
)

type Kind string

const (
	KindNewUser           Kind = "new_user"
	KindUserStatusChange  Kind = "user_status_change"
	KindCameraStateChange Kind = "camera_state_change"
)

// Button is one inline keyboard button. Exactly one of Callback and
// URL is set.
type Button struct {
	Text     string
	Callback string
	URL      string
}

// Directory is the user-directory view needed for recipient
// resolution.
type Directory interface {
	UserIDs(ctx context.Context, min types.UserStatus) ([]int64, error)
}

// RecipientsPolicy decides who is interested in a given camera's state
// changes. The deployment injects it; the model does not hardcode an
// audience for camera notifications.
type RecipientsPolicy func(ctx context.Context, cameraID uuid.UUID) ([]int64, error)

// Resolver bundles the collaborators a variant may need to resolve its
// recipients.
type Resolver struct {
	Directory    Directory
	CameraPolicy RecipientsPolicy
}

// Notification is the closed variant interface. Do not add variants
// outside this package; Decode matches the set exhaustively.
type Notification interface {
	Kind() Kind
	Content() (string, error)
	Buttons() [][]Button
	Recipients(ctx context.Context, r Resolver) ([]int64, error)
}

// Record is a stored notification together with its store-owned
// envelope. IsSent flips false to true exactly once.
type Record struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	IsSent       bool
	Notification Notification
}

// Delivery is a notification resolved for sending: rendered text,
// button grid and the recipient ids at this instant. Ephemeral, never
// persisted.
type Delivery struct {
	NotificationID uuid.UUID
	Text           string
	Buttons        [][]Button
	Recipients     []int64
}

// Resolve renders a stored notification against the current directory
// state.
func Resolve(ctx context.Context, rec Record, r Resolver) (Delivery, error) {
	text, err := rec.Notification.Content()
	if err != nil {
		return Delivery{}, fmt.Errorf("render notification %s: %w", rec.ID, err)
	}
	recipients, err := rec.Notification.Recipients(ctx, r)
	if err != nil {
		return Delivery{}, fmt.Errorf("resolve recipients for notification %s: %w", rec.ID, err)
	}
	return Delivery{
		NotificationID: rec.ID,
		Text:           text,
		Buttons:        rec.Notification.Buttons(),
		Recipients:     recipients,
	}, nil
}

// Encode serializes a variant for storage as (kind, payload).
func Encode(n Notification) (Kind, []byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s notification: %w", n.Kind(), err)
	}
	return n.Kind(), payload, nil
}

// Decode restores a variant from its stored (kind, payload) pair.
func Decode(kind Kind, payload []byte) (Notification, error) {
	var n Notification
	switch kind {
	case KindNewUser:
		n = &NewUser{}
	case KindUserStatusChange:
		n = &UserStatusChange{}
	case KindCameraStateChange:
		n = &CameraStateChange{}
	default:
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}
	if err := json.Unmarshal(payload, n); err != nil {
		return nil, fmt.Errorf("decode %s notification: %w", kind, err)
	}
	return n, nil
}
