package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sosodev/duration"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/discord"
	"github.com/wardenbot/warden/internal/log"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/settings"
)

// MatchWindow is how old a pending case may be and still match an incoming
// event. Together with most-recent-wins selection it is the whole concurrency
// mechanism between the two ingress streams; there is no shared lock.
const MatchWindow = time.Minute

var (
	ErrMatch      = errors.New("failed to match audit event")
	ErrSynthesize = errors.New("failed to synthesize case from audit event")
)

// CaseStore is the persistence surface the reconciler needs.
type CaseStore interface {
	Create(ctx context.Context, kase cases.Case, tempBan *cases.TempBan) (cases.Case, error)
	FindPending(ctx context.Context, guildID string, targetID string, kind action.Kind, maxAge time.Duration) (cases.Case, error)
	MarkSettled(ctx context.Context, guildID string, caseID int64) error
	SetNotification(ctx context.Context, guildID string, caseID int64, notification cases.Notification) error
	SetLogMessageID(ctx context.Context, guildID string, caseID int64, messageID string) error
}

type Notifier interface {
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) (discord.SentMessage, error)
}

type MemberProvider interface {
	Member(ctx context.Context, guildID string, userID string) (*discordgo.Member, error)
	IsMember(ctx context.Context, guildID string, userID string) bool
	GuildName(guildID string) string
}

type SettingsProvider interface {
	Guild(ctx context.Context, guildID string) (settings.Guild, error)
}

type Engine struct {
	store    CaseStore
	notifier Notifier
	poster   cases.LogPoster
	settings SettingsProvider
	members  MemberProvider
}

func NewEngine(store CaseStore, notifier Notifier, poster cases.LogPoster,
	settingsProvider SettingsProvider, members MemberProvider,
) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		poster:   poster,
		settings: settingsProvider,
		members:  members,
	}
}

// Process reconciles one audit event. A matching or creation failure is fatal
// for the event, since the platform will not redeliver it; notification and
// log posting failures are logged and absorbed.
func (e *Engine) Process(ctx context.Context, evt Event) error {
	guild, errGuild := e.settings.Guild(ctx, evt.GuildID)
	if errGuild != nil {
		return errGuild
	}

	kase, matched, errMatch := e.match(ctx, evt)
	if errMatch != nil {
		return errors.Join(errMatch, ErrMatch)
	}

	if matched {
		if errSettle := e.store.MarkSettled(ctx, kase.GuildID, kase.CaseID); errSettle != nil {
			return errors.Join(errSettle, ErrMatch)
		}

		kase = kase.Settled()
	} else {
		synthesized, errCreate := e.synthesize(ctx, evt)
		if errCreate != nil {
			return errors.Join(errCreate, ErrSynthesize)
		}

		kase = synthesized
	}

	if evt.Kind.IsTimeout() && !kase.Notification.Attempted {
		kase = e.sendTimeoutNotification(ctx, evt, kase, matched, guild)
	}

	// The log post always comes last: a crash before this point risks only a
	// missing log message, never a duplicate case.
	e.postLog(ctx, kase, guild)

	return nil
}

// match scans every compatible pending case within the window and picks the
// one with the most recent action time, the freshest moderator action wins.
func (e *Engine) match(ctx context.Context, evt Event) (cases.Case, bool, error) {
	var (
		best  cases.Case
		found bool
	)

	for _, kind := range evt.Kind.CompatibleKinds() {
		candidate, errFind := e.store.FindPending(ctx, evt.GuildID, evt.TargetID, kind, MatchWindow)
		if errFind != nil {
			if errors.Is(errFind, database.ErrNoResult) {
				continue
			}

			return cases.Case{}, false, errFind
		}

		if !found || candidate.ActionTime.After(best.ActionTime) {
			best = candidate
			found = true
		}
	}

	return best, found, nil
}

// synthesize creates an already settled case straight from the event. This is
// how actions performed through the platform's own tools still get a case
// number.
func (e *Engine) synthesize(ctx context.Context, evt Event) (cases.Case, error) {
	kind := evt.Kind.SynthesizedKind()

	kase := cases.New(evt.GuildID, kind, evt.TargetID, e.targetTag(ctx, evt), action.Opts{
		ExecutorID: evt.ExecutorID,
		Reason:     evt.Reason,
	}).Settled()

	if evt.TimeoutUntil != nil {
		if dur := evt.TimeoutUntil.Sub(evt.CreatedOn); dur > 0 {
			kase = kase.WithTimeoutDuration(dur)
		}
	}

	return e.store.Create(ctx, kase, nil)
}

func (e *Engine) targetTag(ctx context.Context, evt Event) string {
	member, errMember := e.members.Member(ctx, evt.GuildID, evt.TargetID)
	if errMember != nil || member == nil || member.User == nil {
		return ""
	}

	return member.User.String()
}

// sendTimeoutNotification delivers the after-the-fact DM for timeout events.
// For a matched bot case the decision recorded at execution time is honored;
// for a native action the policy is evaluated fresh from the event data.
func (e *Engine) sendTimeoutNotification(ctx context.Context, evt Event, kase cases.Case, matched bool, guild settings.Guild) cases.Case {
	notification := kase.Notification

	if !matched {
		decision := notify.Decide(notify.After, e.nativeRequest(evt, kase),
			e.members.IsMember(ctx, evt.GuildID, evt.TargetID), guild)

		notification = cases.Notification{Intended: decision.Should, Source: decision.Source}
		if !decision.Should {
			notification.SkipReason = decision.Source.String()
		}
	}

	if notification.Intended {
		notification.Attempted = true

		sent, errSend := e.notifier.SendDM(ctx, kase.TargetID,
			discord.DMEmbed(kase.Kind, e.members.GuildName(evt.GuildID), kase.Reason,
				guild.MessageFor(kase.Kind), kase.TimeoutDuration))
		if errSend != nil {
			notification.Error = errSend.Error()

			slog.Warn("Failed to send timeout notification", log.ErrAttr(errSend),
				slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))
		} else {
			notification.ChannelID = sent.ChannelID
			notification.MessageID = sent.MessageID
		}
	}

	if errSave := e.store.SetNotification(ctx, kase.GuildID, kase.CaseID, notification); errSave != nil {
		slog.Error("Failed to persist notification result", log.ErrAttr(errSave))
	}

	return kase.WithNotification(notification)
}

// nativeRequest reconstructs an action request from the event so the DM
// policy can be evaluated for actions the bot never saw.
func (e *Engine) nativeRequest(evt Event, kase cases.Case) action.Request {
	opts := action.Opts{ExecutorID: evt.ExecutorID, Reason: evt.Reason}

	if evt.Kind == TimeoutSet {
		return action.TimeoutRequest{Opts: opts, Duration: duration.FromTimeDuration(kase.TimeoutDuration)}
	}

	return action.TimeoutRemoveRequest{Opts: opts}
}

func (e *Engine) postLog(ctx context.Context, kase cases.Case, guild settings.Guild) {
	if !guild.LogChannelEnabled || guild.LogChannelID == "" || kase.LogMessageID != "" {
		return
	}

	messageID, errPost := e.poster.Post(ctx, guild.LogChannelID, kase)
	if errPost != nil {
		slog.Error("Failed to post case log message", log.ErrAttr(errPost),
			slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))

		return
	}

	if errSave := e.store.SetLogMessageID(ctx, kase.GuildID, kase.CaseID, messageID); errSave != nil {
		slog.Error("Failed to persist log message id", log.ErrAttr(errSave))
	}
}

// HandleEntry adapts the engine to the gateway handler signature.
func (e *Engine) HandleEntry(ctx context.Context) discord.AuditEntryHandler {
	return func(entry *discordgo.GuildAuditLogEntryCreate) {
		evt, relevant := FromEntry(entry)
		if !relevant {
			return
		}

		if errProcess := e.Process(ctx, evt); errProcess != nil {
			slog.Error("Failed to reconcile audit event", log.ErrAttr(errProcess),
				slog.String("guild_id", evt.GuildID), slog.String("kind", evt.Kind.String()))
		}
	}
}
