// Package audit reconciles the platform's audit log stream with the bot's own
// case records. Every moderation equivalent change the platform emits either
// settles a pending case or becomes a new case of its own.
package audit

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/action"
)

// EventKind is the moderation relevant subset of audit log actions.
type EventKind int

const (
	BanAdd EventKind = iota
	BanRemove
	MemberKick
	TimeoutSet
	TimeoutRemoved
)

func (k EventKind) String() string {
	switch k {
	case BanAdd:
		return "ban add"
	case BanRemove:
		return "ban remove"
	case MemberKick:
		return "kick"
	case TimeoutSet:
		return "timeout set"
	case TimeoutRemoved:
		return "timeout removed"
	default:
		return "unknown"
	}
}

// Event is one platform side moderation change, already mapped from the raw
// audit log entry.
type Event struct {
	GuildID    string
	Kind       EventKind
	TargetID   string
	ExecutorID string
	Reason     string
	CreatedOn  time.Time
	// TimeoutUntil carries the new communication cutoff for timeout events.
	TimeoutUntil *time.Time
}

// FromEntry maps a raw audit log entry onto an Event. Entries unrelated to
// moderation return ok=false and are discarded.
func FromEntry(entry *discordgo.GuildAuditLogEntryCreate) (Event, bool) {
	if entry == nil || entry.ActionType == nil {
		return Event{}, false
	}

	evt := Event{
		GuildID:    entry.GuildID,
		TargetID:   entry.TargetID,
		ExecutorID: entry.UserID,
		Reason:     entry.Reason,
		CreatedOn:  entryTime(entry.ID),
	}

	switch *entry.ActionType {
	case discordgo.AuditLogActionMemberBanAdd:
		evt.Kind = BanAdd
	case discordgo.AuditLogActionMemberBanRemove:
		evt.Kind = BanRemove
	case discordgo.AuditLogActionMemberKick:
		evt.Kind = MemberKick
	case discordgo.AuditLogActionMemberUpdate:
		until, isTimeout := timeoutChange(entry.Changes)
		if !isTimeout {
			return Event{}, false
		}

		if until == nil || until.Before(time.Now()) {
			evt.Kind = TimeoutRemoved
		} else {
			evt.Kind = TimeoutSet
			evt.TimeoutUntil = until
		}
	default:
		return Event{}, false
	}

	return evt, true
}

func entryTime(entryID string) time.Time {
	created, errCreated := discordgo.SnowflakeTimestamp(entryID)
	if errCreated != nil {
		return time.Now()
	}

	return created
}

// timeoutChange extracts the communication_disabled_until change from a
// member update, when present.
func timeoutChange(changes []*discordgo.AuditLogChange) (*time.Time, bool) {
	for _, change := range changes {
		if change == nil || change.Key == nil || *change.Key != discordgo.AuditLogChangeKeyCommunicationDisabledUntil {
			continue
		}

		raw, isString := change.NewValue.(string)
		if !isString || raw == "" {
			return nil, true
		}

		until, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			return nil, true
		}

		return &until, true
	}

	return nil, false
}

// CompatibleKinds lists the case action types an event may settle. Ban events
// cover both permanent and temp bans, timeout events cover fresh timeouts and
// adjustments; everything else maps 1:1.
func (k EventKind) CompatibleKinds() []action.Kind {
	switch k {
	case BanAdd:
		return []action.Kind{action.Ban, action.TempBan}
	case BanRemove:
		return []action.Kind{action.Unban}
	case MemberKick:
		return []action.Kind{action.Kick}
	case TimeoutSet:
		return []action.Kind{action.Timeout, action.TimeoutAdjust}
	case TimeoutRemoved:
		return []action.Kind{action.TimeoutRemove}
	default:
		return nil
	}
}

// SynthesizedKind is the case action type used when no pending case matched
// and one has to be created from the event itself.
func (k EventKind) SynthesizedKind() action.Kind {
	switch k {
	case BanAdd:
		return action.Ban
	case BanRemove:
		return action.Unban
	case MemberKick:
		return action.Kick
	case TimeoutSet:
		return action.Timeout
	case TimeoutRemoved:
		return action.TimeoutRemove
	default:
		return action.Note
	}
}

// IsTimeout reports whether the event belongs to the timeout family, which is
// the only family carrying native notifications.
func (k EventKind) IsTimeout() bool {
	return k == TimeoutSet || k == TimeoutRemoved
}
