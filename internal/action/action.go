// Package action defines the closed set of moderation actions a moderator can
// request. Every variant validates its own options before anything else
// touches the store or the platform.
package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

var (
	ErrInvalidOpts         = errors.New("invalid action options")
	ErrInvalidDuration     = errors.New("invalid action duration")
	ErrTimeoutDuration     = errors.New("timeout duration must be between 10 seconds and 28 days")
	ErrDeleteMessageWindow = errors.New("message delete window must be between 0 and 7 days")
	ErrReasonTooLong       = errors.New("reason exceeds maximum length")
	ErrMissingExecutor     = errors.New("executor must be set")
	ErrMissingReason       = errors.New("reason must be set")
)

const (
	// MaxReasonLen matches the audit log reason limit upstream.
	MaxReasonLen = 512

	TimeoutMin = time.Second * 10
	TimeoutMax = time.Hour * 24 * 28

	MaxDeleteMessageDays = 7
)

// Kind defines the concrete moderation action variant.
type Kind int

const (
	Ban Kind = iota
	TempBan
	Unban
	Kick
	Timeout
	TimeoutAdjust
	TimeoutRemove
	Warn
	Note
)

func (k Kind) String() string {
	switch k {
	case Ban:
		return "ban"
	case TempBan:
		return "tempban"
	case Unban:
		return "unban"
	case Kick:
		return "kick"
	case Timeout:
		return "timeout"
	case TimeoutAdjust:
		return "timeout adjust"
	case TimeoutRemove:
		return "timeout remove"
	case Warn:
		return "warn"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// ProducesAuditEvent is true for actions the platform mirrors back to us as an
// audit log entry. Cases for these are created pending and settled later by
// the reconciler.
func (k Kind) ProducesAuditEvent() bool {
	switch k {
	case Ban, TempBan, Unban, Kick, Timeout, TimeoutAdjust, TimeoutRemove:
		return true
	case Warn, Note:
		return false
	default:
		return false
	}
}

// CanNotify is false for actions which can never carry a user notification.
func (k Kind) CanNotify() bool {
	return k != Note
}

// Notify is the per invocation notification override supplied by the
// moderator. Default defers to policy and guild settings.
type Notify int

const (
	NotifyDefault Notify = iota
	NotifyYes
	NotifyNo
)

// Opts are the fields shared by every action variant.
type Opts struct {
	ExecutorID  string
	Reason      string
	Attachments []string
	Notify      Notify
}

func (o Opts) Validate() error {
	if o.ExecutorID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrMissingExecutor)
	}

	if len(o.Reason) > MaxReasonLen {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrReasonTooLong)
	}

	return nil
}

// Request is one moderation action as requested by a moderator, before any
// target is bound to it.
type Request interface {
	Kind() Kind
	Common() Opts
	Validate() error
}

type BanRequest struct {
	Opts
	// How many days worth of the target's messages to remove, 0-7.
	DeleteMessageDays int
}

func (r BanRequest) Kind() Kind   { return Ban }
func (r BanRequest) Common() Opts { return r.Opts }

func (r BanRequest) Validate() error {
	if err := r.Opts.Validate(); err != nil {
		return err
	}

	if r.DeleteMessageDays < 0 || r.DeleteMessageDays > MaxDeleteMessageDays {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrDeleteMessageWindow)
	}

	return nil
}

type TempBanRequest struct {
	Opts
	// ISO8601
	Duration          *duration.Duration
	DeleteMessageDays int
}

func (r TempBanRequest) Kind() Kind   { return TempBan }
func (r TempBanRequest) Common() Opts { return r.Opts }

func (r TempBanRequest) Validate() error {
	if err := r.Opts.Validate(); err != nil {
		return err
	}

	if r.Duration == nil || r.Duration.ToTimeDuration() <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrInvalidDuration)
	}

	if r.DeleteMessageDays < 0 || r.DeleteMessageDays > MaxDeleteMessageDays {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrDeleteMessageWindow)
	}

	return nil
}

type UnbanRequest struct {
	Opts
}

func (r UnbanRequest) Kind() Kind      { return Unban }
func (r UnbanRequest) Common() Opts    { return r.Opts }
func (r UnbanRequest) Validate() error { return r.Opts.Validate() }

type KickRequest struct {
	Opts
}

func (r KickRequest) Kind() Kind      { return Kick }
func (r KickRequest) Common() Opts    { return r.Opts }
func (r KickRequest) Validate() error { return r.Opts.Validate() }

type TimeoutRequest struct {
	Opts
	// ISO8601
	Duration *duration.Duration
	// Adjust is set by the moderation service when the target is already
	// timed out, turning this request into an adjustment of the existing one.
	Adjust bool
}

func (r TimeoutRequest) Kind() Kind {
	if r.Adjust {
		return TimeoutAdjust
	}

	return Timeout
}

func (r TimeoutRequest) Common() Opts { return r.Opts }

func (r TimeoutRequest) Validate() error {
	if err := r.Opts.Validate(); err != nil {
		return err
	}

	if r.Duration == nil {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrInvalidDuration)
	}

	if dur := r.Duration.ToTimeDuration(); dur < TimeoutMin || dur > TimeoutMax {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrTimeoutDuration)
	}

	return nil
}

type TimeoutRemoveRequest struct {
	Opts
}

func (r TimeoutRemoveRequest) Kind() Kind      { return TimeoutRemove }
func (r TimeoutRemoveRequest) Common() Opts    { return r.Opts }
func (r TimeoutRemoveRequest) Validate() error { return r.Opts.Validate() }

type WarnRequest struct {
	Opts
}

func (r WarnRequest) Kind() Kind      { return Warn }
func (r WarnRequest) Common() Opts    { return r.Opts }
func (r WarnRequest) Validate() error { return r.Opts.Validate() }

type NoteRequest struct {
	Opts
}

func (r NoteRequest) Kind() Kind   { return Note }
func (r NoteRequest) Common() Opts { return r.Opts }

func (r NoteRequest) Validate() error {
	if err := r.Opts.Validate(); err != nil {
		return err
	}

	if r.Reason == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOpts, ErrMissingReason)
	}

	return nil
}
