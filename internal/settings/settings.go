// Package settings holds the per guild moderation configuration: notification
// toggles, custom DM texts and the public mod log channel.
package settings

import (
	"time"

	"github.com/wardenbot/warden/internal/action"
)

type Guild struct {
	GuildID           string
	NotifyOnBan       bool
	NotifyOnTimeout   bool
	BanMessage        string
	TimeoutMessage    string
	WarnMessage       string
	LogChannelID      string
	LogChannelEnabled bool
	CreatedOn         time.Time
	UpdatedOn         time.Time
}

// Default is what a guild gets before anybody has configured it.
func Default(guildID string) Guild {
	now := time.Now()

	return Guild{
		GuildID:         guildID,
		NotifyOnBan:     true,
		NotifyOnTimeout: true,
		CreatedOn:       now,
		UpdatedOn:       now,
	}
}

// MessageFor returns the custom notification text configured for an action
// kind, or empty when none is set. Kicks have no custom text yet.
func (g Guild) MessageFor(kind action.Kind) string {
	switch kind {
	case action.Ban, action.TempBan:
		return g.BanMessage
	case action.Timeout, action.TimeoutAdjust, action.TimeoutRemove:
		return g.TimeoutMessage
	case action.Warn:
		return g.WarnMessage
	default:
		return ""
	}
}

// NotifyDefault is the per guild fallback toggle consulted when neither policy
// rules nor the moderator decided the outcome.
func (g Guild) NotifyDefault(kind action.Kind) bool {
	switch kind {
	case action.Ban, action.TempBan:
		return g.NotifyOnBan
	case action.Timeout, action.TimeoutAdjust, action.TimeoutRemove:
		return g.NotifyOnTimeout
	default:
		// Kicks have no toggle yet and default to off.
		return false
	}
}
