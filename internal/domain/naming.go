package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	maxChannelName = 100

	DefaultRoomNameFormat   = "{template} | {member}"
	DefaultUniqueNameFormat = "{member}"
)

// FormatRoomName renders a temporary room name from the template channel name
// and the owner's display name. The result is deterministic for the same inputs.
func FormatRoomName(format, template, member string) string {
	if format == "" {
		format = DefaultRoomNameFormat
	}
	r := strings.NewReplacer("{template}", template, "{member}", member)
	return clampName(r.Replace(format), template)
}

// FormatUniqueName renders the name of a member's private channel.
func FormatUniqueName(format, category, member string) string {
	if format == "" {
		format = DefaultUniqueNameFormat
	}
	r := strings.NewReplacer("{category}", category, "{member}", member)
	return clampName(r.Replace(format), member)
}

func clampName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(fallback)
	}
	if name == "" {
		name = "room"
	}
	if utf8.RuneCountInString(name) <= maxChannelName {
		return name
	}
	runes := []rune(name)
	return strings.TrimSpace(string(runes[:maxChannelName]))
}
