package telegram

import (
	"fmt"
	"strings"

	"herdwatch/internal/types"
)

func shortUserInfo(u types.User) string {
	return fmt.Sprintf("@%s (%s)", u.Username, u.Status)
}

func shortCameraInfo(c types.Camera) string {
	return fmt.Sprintf("%s (%s)", c.Address, c.State)
}

func userList(users []types.User) string {
	if len(users) == 0 {
		return "No users yet."
	}
	var b strings.Builder
	b.WriteString("Users:\n")
	for _, u := range users {
		fmt.Fprintf(&b, "%d - %s\n", u.ID, shortUserInfo(u))
	}
	return strings.TrimRight(b.String(), "\n")
}

func cameraList(cameras []types.Camera) string {
	if len(cameras) == 0 {
		return "No cameras yet."
	}
	var b strings.Builder
	b.WriteString("Cameras:\n")
	for _, c := range cameras {
		fmt.Fprintf(&b, "%s - %s\n", c.ID, shortCameraInfo(c))
	}
	return strings.TrimRight(b.String(), "\n")
}
