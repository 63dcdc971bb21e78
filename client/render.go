package main

import (
	"encoding/json"
	"fmt"
	"pokedex-chat/domain/chat"
	"time"

	"github.com/gookit/color"
)

// frame accepts both outbound shapes: welcome and broadcast.
type frame struct {
	User    string `json:"user"`
	Text    string `json:"text"`
	Usuario string `json:"usuario"`
	Texto   string `json:"texto"`
}

// render formats one received frame as a terminal line.
func render(data []byte, at time.Time) string {
	stamp := at.Format(time.TimeOnly)
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return color.Red.Sprintf("[%s] unreadable frame: %s", stamp, string(data))
	}
	if f.User == chat.SystemUser {
		return color.Yellow.Sprintf("[%s] * %s", stamp, f.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, color.Cyan.Sprint(f.Usuario), f.Texto)
}
