package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"herdwatch/internal/types"
)

// CameraStateChange reports that a camera's aggregated herd state
// moved. Address is captured at creation so the message stays readable
// even if the camera is later renamed or removed.
type CameraStateChange struct {
	CameraID uuid.UUID   `json:"camera_id"`
	Address  string      `json:"address"`
	Previous types.State `json:"previous"`
	New      types.State `json:"new"`
}

func (n *CameraStateChange) Kind() Kind { return KindCameraStateChange }

func (n *CameraStateChange) Content() (string, error) {
	return fmt.Sprintf(
		"Camera %s (%s): herd state changed.\nCows: %d -> %d\nCalves: %d -> %d",
		n.Address, n.CameraID,
		n.Previous.Cows, n.New.Cows,
		n.Previous.Calves, n.New.Calves,
	), nil
}

func (n *CameraStateChange) Buttons() [][]Button { return nil }

func (n *CameraStateChange) Recipients(ctx context.Context, r Resolver) ([]int64, error) {
	if r.CameraPolicy == nil {
		return nil, errors.New("no camera recipients policy configured")
	}
	return r.CameraPolicy(ctx, n.CameraID)
}
