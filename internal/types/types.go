// Package types holds the domain model shared by the watcher, the
// notification pipeline and the storage layer.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CameraState int

const (
	CameraDisabled   CameraState = 0
	CameraActive     CameraState = 1
	CameraOutOfOrder CameraState = 2
)

func (s CameraState) String() string {
	switch s {
	case CameraDisabled:
		return "disabled"
	case CameraActive:
		return "active"
	case CameraOutOfOrder:
		return "out of order"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Camera is a monitored video source. Owned by the storage layer; the
// watcher only reads it.
type Camera struct {
	ID      uuid.UUID
	Address string
	State   CameraState
	Deleted bool
}

func (c Camera) String() string {
	return fmt.Sprintf("%s: %s, %s", c.ID, c.Address, c.State)
}

// Analysis is one raw measurement produced for a camera by the
// external analysis pipeline. Immutable once written.
type Analysis struct {
	ID       uuid.UUID
	CameraID uuid.UUID
	At       time.Time
	Cows     int
	Calves   int
}

// State is the aggregated herd state over one check window: the
// floor-divided mean of the counters across all analyses in the window.
type State struct {
	Cows   int
	Calves int
}

func (s State) Equal(o State) bool {
	return s.Cows == o.Cows && s.Calves == o.Calves
}

// UserStatus is an ordered privilege ladder. Comparisons with >= are
// meaningful: every administrator is also an approved user.
type UserStatus int

const (
	StatusRefused        UserStatus = 0
	StatusPendingApprove UserStatus = 1
	StatusApprovedUser   UserStatus = 2
	StatusAdministrator  UserStatus = 3
)

func (s UserStatus) String() string {
	switch s {
	case StatusRefused:
		return "refused"
	case StatusPendingApprove:
		return "pending approve"
	case StatusApprovedUser:
		return "approved user"
	case StatusAdministrator:
		return "administrator"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// User is a Telegram account known to the bot. The id is the Telegram
// chat id, which doubles as the send target.
type User struct {
	ID       int64
	Username string
	Status   UserStatus
}
