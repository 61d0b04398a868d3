package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/notification"
	"herdwatch/internal/types"
	"herdwatch/pkg/logx"
)

type fakeStore struct {
	records []notification.Record

	unsentErr error
	markErr   error
	marked    []uuid.UUID
}

func (f *fakeStore) Unsent(ctx context.Context) ([]notification.Record, error) {
	if f.unsentErr != nil {
		return nil, f.unsentErr
	}
	var out []notification.Record
	for _, r := range f.records {
		if !r.IsSent {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkSent(ctx context.Context, id uuid.UUID) (notification.Record, error) {
	if f.markErr != nil {
		return notification.Record{}, f.markErr
	}
	f.marked = append(f.marked, id)
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].IsSent = true
			return f.records[i], nil
		}
	}
	return notification.Record{}, errors.New("not found")
}

type fakeSender struct {
	sent    []int64
	failFor map[int64]error
}

func (f *fakeSender) Send(ctx context.Context, recipientID int64, text string, buttons [][]notification.Button) error {
	if err := f.failFor[recipientID]; err != nil {
		return err
	}
	f.sent = append(f.sent, recipientID)
	return nil
}

type fixedDirectory struct {
	ids []int64
}

func (f *fixedDirectory) UserIDs(ctx context.Context, min types.UserStatus) ([]int64, error) {
	return f.ids, nil
}

func record(n notification.Notification, createdAt time.Time) notification.Record {
	return notification.Record{ID: uuid.New(), CreatedAt: createdAt, Notification: n}
}

func TestRunOnceAttemptsAllRecipientsDespiteFailure(t *testing.T) {
	store := &fakeStore{records: []notification.Record{
		record(&notification.NewUser{UserID: 9, Username: "x"}, time.Now()),
	}}
	sender := &fakeSender{failFor: map[int64]error{2: errors.New("blocked by user")}}
	dir := &fixedDirectory{ids: []int64{1, 2, 3}}
	pipe := New(store, sender, notification.Resolver{Directory: dir}, 1000, logx.Nop())

	st, err := pipe.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if st.Recipients != 3 {
		t.Fatalf("expected 3 attempts, got %d", st.Recipients)
	}
	if st.Failed != 1 {
		t.Fatalf("expected 1 failed send, got %d", st.Failed)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 successful sends, got %v", sender.sent)
	}
	if len(store.marked) != 1 {
		t.Fatalf("notification must be marked sent exactly once, got %v", store.marked)
	}
}

func TestRunOnceUnresolvedNotificationSkipsButSiblingsProceed(t *testing.T) {
	bad := record(&notification.UserStatusChange{
		UserID:   5,
		Previous: types.StatusApprovedUser,
		New:      types.StatusPendingApprove, // no message defined
	}, time.Now().Add(-time.Minute))
	good := record(&notification.UserStatusChange{
		UserID:   6,
		Previous: types.StatusPendingApprove,
		New:      types.StatusApprovedUser,
	}, time.Now())
	store := &fakeStore{records: []notification.Record{bad, good}}
	sender := &fakeSender{}
	pipe := New(store, sender, notification.Resolver{Directory: &fixedDirectory{}}, 1000, logx.Nop())

	st, err := pipe.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if st.Unresolved != 1 {
		t.Fatalf("expected 1 unresolved, got %d", st.Unresolved)
	}
	if st.Notifications != 1 {
		t.Fatalf("expected 1 acknowledged, got %d", st.Notifications)
	}
	if len(store.marked) != 1 || store.marked[0] != good.ID {
		t.Fatalf("only the resolvable notification must be marked, got %v", store.marked)
	}
	if len(sender.sent) != 1 || sender.sent[0] != 6 {
		t.Fatalf("expected a single send to the subject, got %v", sender.sent)
	}
}

func TestRunOnceMarkSentFailureLeavesNotificationPending(t *testing.T) {
	store := &fakeStore{
		records: []notification.Record{
			record(&notification.UserStatusChange{
				UserID:   5,
				Previous: types.StatusPendingApprove,
				New:      types.StatusApprovedUser,
			}, time.Now()),
		},
		markErr: errors.New("db locked"),
	}
	sender := &fakeSender{}
	pipe := New(store, sender, notification.Resolver{Directory: &fixedDirectory{}}, 1000, logx.Nop())

	st, err := pipe.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if st.Notifications != 0 {
		t.Fatalf("acknowledgement failed; expected 0 acknowledged, got %d", st.Notifications)
	}

	// Next run re-delivers: at-least-once semantics.
	store.markErr = nil
	if _, err := pipe.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected a duplicate delivery on retry, got %v", sender.sent)
	}
}

func TestRunOnceStoreFailurePropagates(t *testing.T) {
	store := &fakeStore{unsentErr: fmt.Errorf("db down")}
	pipe := New(store, &fakeSender{}, notification.Resolver{}, 1000, logx.Nop())
	if _, err := pipe.RunOnce(context.Background()); err == nil {
		t.Fatal("expected an error when the store is unavailable")
	}
}
