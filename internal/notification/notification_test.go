package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/types"
)

func TestResolveUsesCurrentDirectory(t *testing.T) {
	dir := &fakeDirectory{byStatus: map[types.UserStatus][]int64{
		types.StatusAdministrator: {1},
	}}
	rec := Record{
		ID:           uuid.New(),
		CreatedAt:    time.Now().Add(-time.Hour),
		Notification: &NewUser{UserID: 5, Username: "late"},
	}
	r := Resolver{Directory: dir}

	d, err := Resolve(context.Background(), rec, r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(d.Recipients) != 1 {
		t.Fatalf("expected 1 recipient, got %v", d.Recipients)
	}

	// Directory membership changed since creation: the next resolve
	// must see it.
	dir.byStatus[types.StatusAdministrator] = []int64{1, 2, 3}
	d, err = Resolve(context.Background(), rec, r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(d.Recipients) != 3 {
		t.Fatalf("resolution must reflect current membership, got %v", d.Recipients)
	}
}

func TestCameraStateChangeRendering(t *testing.T) {
	n := &CameraStateChange{
		CameraID: uuid.New(),
		Address:  "barn-2",
		Previous: types.State{Cows: 3, Calves: 1},
		New:      types.State{Cows: 5, Calves: 1},
	}
	msg, err := n.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	for _, want := range []string{"barn-2", "3 -> 5", "1 -> 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
	if n.Buttons() != nil {
		t.Fatalf("camera state change must have no buttons")
	}
}

func TestCameraStateChangeRequiresPolicy(t *testing.T) {
	n := &CameraStateChange{CameraID: uuid.New()}
	if _, err := n.Recipients(context.Background(), Resolver{}); err == nil {
		t.Fatal("expected an error without a recipients policy")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := &UserStatusChange{UserID: 7, Previous: types.StatusPendingApprove, New: types.StatusApprovedUser}
	kind, payload, err := Encode(orig)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(kind, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(*UserStatusChange)
	if !ok {
		t.Fatalf("decoded into %T", decoded)
	}
	if *got != *orig {
		t.Fatalf("round trip mismatch: %+v != %+v", got, orig)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode("bogus", []byte("{}")); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}
