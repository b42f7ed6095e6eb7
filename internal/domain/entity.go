// Package domain holds the inbox entities and the notification flag encoding.
// It has no dependencies on other packages.
package domain

import "strconv"

// FlagKey is the storage key of the cross-view notification flag.
const FlagKey = "newMessage"

// Message is a chat message held by a view's message log.
type Message struct {
	ID           int    `json:"id"`
	IsFromDevice bool   `json:"is_from_device"`
	Text         string `json:"text"`
}

// MessageLogState is a point-in-time copy of a message log.
// NewMessage is set by every append and cleared only by an explicit mark-as-read;
// it is never recomputed from Messages. Unread counts the appends since that
// mark-as-read, so NewMessage is true exactly when Unread > 0.
type MessageLogState struct {
	Messages   []Message `json:"messages"`
	NewMessage bool      `json:"new_message"`
	Unread     int       `json:"unread"`
}

// EncodeFlag returns the stored string form of a flag value.
func EncodeFlag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// DecodeFlag reports whether a stored value means "unread".
// Only the exact string "true" does; anything else, including "", is false.
func DecodeFlag(s string) bool {
	return s == "true"
}

// BadgeLabel renders an unread count for a badge, capped at "9+".
func BadgeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 9:
		return "9+"
	default:
		return strconv.Itoa(n)
	}
}
