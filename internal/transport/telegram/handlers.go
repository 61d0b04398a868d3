package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"herdwatch/internal/notification"
	"herdwatch/internal/storage"
	"herdwatch/internal/types"
	"herdwatch/pkg/logx"
)

const handlerTimeout = 10 * time.Second

const (
	msgNoPermission   = "Not enough permissions for this operation."
	msgUserNotFound   = "User not found."
	msgCameraNotFound = "Camera not found."
	msgInternalError  = "Something went wrong."
)

// Handlers is the admin command surface: user approval flow and camera
// roster management. Every status mutation that actually changes a
// user's status also queues a UserStatusChange notification for the
// subject.
type Handlers struct {
	store *storage.Store
	log   logx.Logger
}

func NewHandlers(store *storage.Store, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{store: store, log: log}
}

func (h *Handlers) Register(a *Adapter) {
	b := a.bot
	b.Handle("/start", h.start)

	b.Handle("/cameras", h.require(types.StatusApprovedUser, h.cameras))
	b.Handle("/addcamera", h.require(types.StatusApprovedUser, h.addCamera))
	b.Handle("/enablecamera", h.require(types.StatusApprovedUser, h.setCameraState(types.CameraActive, "Camera enabled")))
	b.Handle("/disablecamera", h.require(types.StatusApprovedUser, h.setCameraState(types.CameraDisabled, "Camera disabled")))
	b.Handle("/removecamera", h.require(types.StatusApprovedUser, h.removeCamera))

	b.Handle("/users", h.require(types.StatusAdministrator, h.users))
	b.Handle("/approve", h.require(types.StatusAdministrator, h.userAction(h.approve)))
	b.Handle("/refuse", h.require(types.StatusAdministrator, h.userAction(h.refuse)))
	b.Handle("/addadmin", h.require(types.StatusAdministrator, h.userAction(h.addAdmin)))
	b.Handle("/removeadmin", h.require(types.StatusAdministrator, h.userAction(h.removeAdmin)))

	b.Handle(tele.OnCallback, h.callback)
}

type handlerFunc func(ctx context.Context, c tele.Context) error

// require gates a handler on the sender's directory status.
func (h *Handlers) require(min types.UserStatus, next handlerFunc) func(tele.Context) error {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		sender := c.Sender()
		if sender == nil {
			return nil
		}
		if _, err := h.store.FindUser(ctx, sender.ID, min); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.Send(msgNoPermission)
			}
			h.log.Error("sender lookup failed", logx.Int64("sender", sender.ID), logx.Err(err))
			return c.Send(msgInternalError)
		}
		return next(ctx, c)
	}
}

// start registers the sender as pending approval and notifies the
// administrators. Repeated /start reports the current request state
// and refreshes a changed username.
func (h *Handlers) start(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.log.Info("start command received", logx.Int64("sender", sender.ID))

	user, err := h.store.FindUser(ctx, sender.ID, types.StatusRefused)
	switch {
	case err == nil:
		if sender.Username != "" && sender.Username != user.Username {
			if _, err := h.store.UpdateUsername(ctx, sender.ID, sender.Username); err != nil {
				h.log.Warn("username refresh failed", logx.Int64("user", sender.ID), logx.Err(err))
			}
		}
		switch user.Status {
		case types.StatusRefused:
			return c.Send("Your access request was declined by an administrator.")
		case types.StatusPendingApprove:
			return c.Send("Your request is pending, an administrator will review it.")
		default:
			return c.Send("You are already a user of this bot.")
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		h.log.Error("user lookup failed", logx.Int64("sender", sender.ID), logx.Err(err))
		return c.Send(msgInternalError)
	}

	user, err = h.store.AddUser(ctx, sender.ID, sender.Username)
	if err != nil {
		h.log.Error("user registration failed", logx.Int64("sender", sender.ID), logx.Err(err))
		return c.Send(msgInternalError)
	}
	if err := h.store.Add(ctx, &notification.NewUser{UserID: user.ID, Username: user.Username}); err != nil {
		h.log.Error("new-user notification failed", logx.Int64("user", user.ID), logx.Err(err))
	}
	h.log.Info("new user request created", logx.Int64("user", user.ID))
	return c.Send("Request sent. An administrator will review it shortly.")
}

func (h *Handlers) users(ctx context.Context, c tele.Context) error {
	users, err := h.store.Users(ctx, types.StatusRefused)
	if err != nil {
		h.log.Error("user list failed", logx.Err(err))
		return c.Send(msgInternalError)
	}
	return c.Send(userList(users))
}

func (h *Handlers) cameras(ctx context.Context, c tele.Context) error {
	cameras, err := h.store.Cameras(ctx, nil)
	if err != nil {
		h.log.Error("camera list failed", logx.Err(err))
		return c.Send(msgInternalError)
	}
	return c.Send(cameraList(cameras))
}

func (h *Handlers) addCamera(ctx context.Context, c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command.\nUsage:\n/addcamera <address>")
	}
	camera, err := h.store.AddCamera(ctx, args[0], types.CameraDisabled)
	if err != nil {
		h.log.Error("add camera failed", logx.String("address", args[0]), logx.Err(err))
		return c.Send(msgInternalError)
	}
	return c.Send(fmt.Sprintf("Camera added: %s.", shortCameraInfo(camera)))
}

func (h *Handlers) setCameraState(state types.CameraState, done string) handlerFunc {
	return func(ctx context.Context, c tele.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid command: expected a camera id.")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return c.Send("Invalid camera id.")
		}
		camera, err := h.store.UpdateCameraState(ctx, id, state)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Send(msgCameraNotFound)
		}
		if err != nil {
			h.log.Error("camera state update failed", logx.String("camera", id.String()), logx.Err(err))
			return c.Send(msgInternalError)
		}
		return c.Send(fmt.Sprintf("%s: %s.", done, shortCameraInfo(camera)))
	}
}

func (h *Handlers) removeCamera(ctx context.Context, c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command: expected a camera id.")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return c.Send("Invalid camera id.")
	}
	camera, err := h.store.FindCamera(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Send(msgCameraNotFound)
	}
	if err != nil {
		h.log.Error("camera lookup failed", logx.String("camera", id.String()), logx.Err(err))
		return c.Send(msgInternalError)
	}
	if err := h.store.DeleteCamera(ctx, id); err != nil {
		h.log.Error("camera removal failed", logx.String("camera", id.String()), logx.Err(err))
		return c.Send(msgInternalError)
	}
	return c.Send(fmt.Sprintf("Camera removed: %s.", camera.Address))
}

// userAction parses the target user id argument and runs the mutation.
func (h *Handlers) userAction(action func(ctx context.Context, targetID int64) (string, error)) handlerFunc {
	return func(ctx context.Context, c tele.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid command: expected a user id.")
		}
		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Invalid user id.")
		}
		msg, err := action(ctx, targetID)
		if err != nil {
			h.log.Error("user action failed", logx.Int64("target", targetID), logx.Err(err))
			return c.Send(msgInternalError)
		}
		return c.Send(msg)
	}
}

func (h *Handlers) approve(ctx context.Context, targetID int64) (string, error) {
	target, err := h.store.FindUser(ctx, targetID, types.StatusRefused)
	if errors.Is(err, storage.ErrNotFound) {
		return msgUserNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if target.Status <= types.StatusPendingApprove {
		prev := target.Status
		target, err = h.store.ApproveUser(ctx, targetID)
		if err != nil {
			return "", err
		}
		h.notifyStatusChange(ctx, target.ID, prev, types.StatusApprovedUser)
		h.log.Info("user approved", logx.Int64("user", target.ID))
	}
	return fmt.Sprintf("User @%s approved.", target.Username), nil
}

func (h *Handlers) refuse(ctx context.Context, targetID int64) (string, error) {
	target, err := h.store.FindUser(ctx, targetID, types.StatusRefused)
	if errors.Is(err, storage.ErrNotFound) {
		return msgUserNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if target.Status != types.StatusRefused {
		prev := target.Status
		target, err = h.store.RefuseUser(ctx, targetID)
		if err != nil {
			return "", err
		}
		h.notifyStatusChange(ctx, target.ID, prev, types.StatusRefused)
		h.log.Info("user refused", logx.Int64("user", target.ID))
	}
	return fmt.Sprintf("User @%s refused.", target.Username), nil
}

func (h *Handlers) addAdmin(ctx context.Context, targetID int64) (string, error) {
	target, err := h.store.FindUser(ctx, targetID, types.StatusRefused)
	if errors.Is(err, storage.ErrNotFound) {
		return msgUserNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if target.Status != types.StatusAdministrator {
		prev := target.Status
		target, err = h.store.GrantAdmin(ctx, targetID)
		if err != nil {
			return "", err
		}
		h.notifyStatusChange(ctx, target.ID, prev, types.StatusAdministrator)
		h.log.Info("admin granted", logx.Int64("user", target.ID))
	}
	return fmt.Sprintf("User @%s is now an administrator.", target.Username), nil
}

func (h *Handlers) removeAdmin(ctx context.Context, targetID int64) (string, error) {
	target, err := h.store.FindUser(ctx, targetID, types.StatusRefused)
	if errors.Is(err, storage.ErrNotFound) {
		return msgUserNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if target.Status == types.StatusAdministrator {
		target, err = h.store.RemoveAdmin(ctx, targetID)
		if err != nil {
			return "", err
		}
		h.notifyStatusChange(ctx, target.ID, types.StatusAdministrator, types.StatusApprovedUser)
		h.log.Info("admin removed", logx.Int64("user", target.ID))
	}
	return fmt.Sprintf("User @%s is no longer an administrator.", target.Username), nil
}

func (h *Handlers) notifyStatusChange(ctx context.Context, userID int64, prev, next types.UserStatus) {
	n := &notification.UserStatusChange{UserID: userID, Previous: prev, New: next}
	if err := h.store.Add(ctx, n); err != nil {
		h.log.Error("status-change notification failed", logx.Int64("user", userID), logx.Err(err))
	}
}

// callback handles the approve/refuse buttons attached to new-user
// notifications. The callback data mirrors the text commands.
func (h *Handlers) callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	parts := strings.Fields(data)
	if len(parts) != 2 {
		h.log.Warn("invalid callback data", logx.String("data", data))
		return c.Respond(&tele.CallbackResponse{Text: msgInternalError})
	}

	var action func(ctx context.Context, targetID int64) (string, error)
	switch parts[0] {
	case "/approve":
		action = h.approve
	case "/refuse":
		action = h.refuse
	default:
		h.log.Warn("unknown callback action", logx.String("data", data))
		return c.Respond(&tele.CallbackResponse{Text: msgInternalError})
	}

	msg := msgNoPermission
	if _, err := h.store.FindUser(ctx, cb.Sender.ID, types.StatusAdministrator); err == nil {
		targetID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			msg = msgInternalError
		} else if msg, err = action(ctx, targetID); err != nil {
			h.log.Error("callback action failed", logx.Int64("target", targetID), logx.Err(err))
			msg = msgInternalError
		}
	}

	if err := c.Respond(&tele.CallbackResponse{Text: msg}); err != nil {
		return err
	}
	// Replace the request message so the buttons disappear once acted on.
	return c.Edit(msg)
}
