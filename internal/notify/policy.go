// Package notify decides whether the target of a moderation action should
// receive a direct message about it. The decision is a pure function of
// timing, action, target membership and guild settings so it can be recorded
// on the case before any network call happens.
package notify

import (
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/settings"
)

// Timing is where in the execution pipeline the decision is being asked for.
// Bans, kicks and warnings must reach the user before the platform call cuts
// them off; timeouts and unbans can only sensibly be delivered afterwards.
type Timing int

const (
	Before Timing = iota
	After
)

// Slot returns the single timing at which an action kind may notify.
func Slot(kind action.Kind) Timing {
	switch kind {
	case action.Ban, action.TempBan, action.Kick, action.Warn:
		return Before
	default:
		return After
	}
}

// Source records which rule produced a decision. It is persisted on the case
// for auditability even when no send is ever attempted.
type Source int

const (
	SourceUnknown Source = iota
	// SourceNotMember target is not currently in the guild.
	SourceNotMember
	// SourceActionNotSupported the action kind cannot notify, or not at this timing.
	SourceActionNotSupported
	// SourceSuppressed no reason text and no custom message configured.
	SourceSuppressed
	// SourceWarnAlways warnings always notify, nothing overrides this.
	SourceWarnAlways
	// SourceUnbanNever unbans never notify, the target cannot be reached anyway.
	SourceUnbanNever
	// SourceOverride the moderator explicitly chose yes or no.
	SourceOverride
	// SourceGuildToggle the guild's per action toggle decided.
	SourceGuildToggle
)

func (s Source) String() string {
	switch s {
	case SourceNotMember:
		return "not_member"
	case SourceActionNotSupported:
		return "action_not_supported"
	case SourceSuppressed:
		return "suppressed"
	case SourceWarnAlways:
		return "warn_always"
	case SourceUnbanNever:
		return "unban_never"
	case SourceOverride:
		return "override"
	case SourceGuildToggle:
		return "guild_toggle"
	default:
		return "unknown"
	}
}

type Decision struct {
	Should bool
	Source Source
}

// Decide evaluates the notification rules in strict priority order.
//
// Warn-always is checked ahead of the explicit override, and unban-never ahead
// of it too: a warning without its message has no user visible effect at all,
// and an unban notification can never be delivered.
func Decide(timing Timing, req action.Request, targetIsMember bool, guild settings.Guild) Decision {
	kind := req.Kind()
	opts := req.Common()

	if !targetIsMember {
		return Decision{Should: false, Source: SourceNotMember}
	}

	if !kind.CanNotify() {
		return Decision{Should: false, Source: SourceActionNotSupported}
	}

	if Slot(kind) != timing {
		return Decision{Should: false, Source: SourceActionNotSupported}
	}

	if kind != action.Warn && opts.Reason == "" && guild.MessageFor(kind) == "" {
		return Decision{Should: false, Source: SourceSuppressed}
	}

	if kind == action.Warn {
		return Decision{Should: true, Source: SourceWarnAlways}
	}

	if kind == action.Unban {
		return Decision{Should: false, Source: SourceUnbanNever}
	}

	switch opts.Notify {
	case action.NotifyYes:
		return Decision{Should: true, Source: SourceOverride}
	case action.NotifyNo:
		return Decision{Should: false, Source: SourceOverride}
	case action.NotifyDefault:
	}

	return Decision{Should: guild.NotifyDefault(kind), Source: SourceGuildToggle}
}
