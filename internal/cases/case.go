// Package cases holds the durable record of every moderation action, one
// numbered case per action per guild.
package cases

import (
	"errors"
	"slices"
	"time"

	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/notify"
)

var (
	ErrCreateCase   = errors.New("failed to create case")
	ErrSaveCase     = errors.New("failed to save case")
	ErrCaseNotFound = errors.New("case does not exist")
	ErrDropCase     = errors.New("failed to drop case")
)

// Notification is the outcome of the DM decision and, when attempted, the
// send itself. The intent fields are written before any network call so a
// suppressed or failed notification still leaves a trace on the case.
type Notification struct {
	Intended   bool
	Source     notify.Source
	Attempted  bool
	SkipReason string
	ChannelID  string
	MessageID  string
	Error      string
}

// Case is the persisted record of one moderation action. Instances are
// immutable; every mutator returns an updated copy and the store is the only
// place state actually changes.
type Case struct {
	GuildID         string
	CaseID          int64
	Kind            action.Kind
	ActionTime      time.Time
	TargetID        string
	TargetTag       string
	ExecutorID      string
	Reason          string
	LogMessageID    string
	Attachments     []string
	Pending         bool
	TimeoutDuration time.Duration
	Notification    Notification
}

// New builds an unpersisted case for an action against a target. The case id
// is zero until the repository allocates one. Actions which the platform
// mirrors back as audit events start out pending.
func New(guildID string, kind action.Kind, targetID string, targetTag string, opts action.Opts) Case {
	return Case{
		GuildID:     guildID,
		Kind:        kind,
		ActionTime:  time.Now(),
		TargetID:    targetID,
		TargetTag:   targetTag,
		ExecutorID:  opts.ExecutorID,
		Reason:      opts.Reason,
		Attachments: slices.Clone(opts.Attachments),
		Pending:     kind.ProducesAuditEvent(),
	}
}

func (c Case) WithReason(reason string) Case {
	c.Reason = reason

	return c
}

// WithoutReason clears the stored reason.
func (c Case) WithoutReason() Case {
	c.Reason = ""

	return c
}

func (c Case) WithExecutor(executorID string) Case {
	c.ExecutorID = executorID

	return c
}

func (c Case) WithTargetTag(tag string) Case {
	c.TargetTag = tag

	return c
}

func (c Case) WithTimeoutDuration(dur time.Duration) Case {
	c.TimeoutDuration = dur

	return c
}

func (c Case) WithLogMessageID(messageID string) Case {
	c.LogMessageID = messageID

	return c
}

func (c Case) WithAttachments(attachments []string) Case {
	c.Attachments = slices.Clone(attachments)

	return c
}

func (c Case) WithNotification(notification Notification) Case {
	c.Notification = notification

	return c
}

// Settled returns the case with pending cleared. Settling is one way, a
// settled case never reopens.
func (c Case) Settled() Case {
	c.Pending = false

	return c
}
