// Package moderation executes punitive actions end to end: case creation,
// target notification, the platform call itself, rollback on failure and the
// hand-off to the audit reconciler.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/discord"
	"github.com/wardenbot/warden/internal/log"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/settings"
)

var (
	ErrWarnUndeliverable = errors.New("warning could not be delivered")
	ErrActionFailed      = errors.New("platform action failed")
	ErrCreateCase        = errors.New("failed to persist case")
)

// CaseStore is the persistence surface the pipeline needs. Create allocates
// the case id and performs temp ban bookkeeping in the same transaction.
type CaseStore interface {
	Create(ctx context.Context, kase cases.Case, tempBan *cases.TempBan) (cases.Case, error)
	Delete(ctx context.Context, kase cases.Case) error
	SetNotification(ctx context.Context, guildID string, caseID int64, notification cases.Notification) error
	SetLogMessageID(ctx context.Context, guildID string, caseID int64, messageID string) error
}

// Platform performs the actual moderation calls against Discord.
type Platform interface {
	BanMember(ctx context.Context, guildID string, userID string, reason string, deleteMessageDays int) error
	UnbanMember(ctx context.Context, guildID string, userID string) error
	KickMember(ctx context.Context, guildID string, userID string, reason string) error
	TimeoutMember(ctx context.Context, guildID string, userID string, dur time.Duration) error
	RemoveTimeout(ctx context.Context, guildID string, userID string) error
}

// Notifier delivers and retracts direct messages to action targets.
type Notifier interface {
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) (discord.SentMessage, error)
	DeleteDM(ctx context.Context, sent discord.SentMessage) error
}

// MemberProvider resolves current guild membership.
type MemberProvider interface {
	Member(ctx context.Context, guildID string, userID string) (*discordgo.Member, error)
	IsMember(ctx context.Context, guildID string, userID string) bool
	GuildName(guildID string) string
}

type SettingsProvider interface {
	Guild(ctx context.Context, guildID string) (settings.Guild, error)
}

type Pipeline struct {
	store    CaseStore
	platform Platform
	notifier Notifier
	poster   cases.LogPoster
	settings SettingsProvider
	members  MemberProvider
}

func NewPipeline(store CaseStore, platform Platform, notifier Notifier, poster cases.LogPoster,
	settingsProvider SettingsProvider, members MemberProvider,
) *Pipeline {
	return &Pipeline{
		store:    store,
		platform: platform,
		notifier: notifier,
		poster:   poster,
		settings: settingsProvider,
		members:  members,
	}
}

// Execute runs one action against one target through the full pipeline.
//
// The returned case is pending for actions the platform will echo back as an
// audit event; those are settled and logged later by the reconciler. Warn and
// note cases are settled and logged here directly.
func (p *Pipeline) Execute(ctx context.Context, guildID string, req action.Request, targetID string) (cases.Case, error) {
	if errValidate := req.Validate(); errValidate != nil {
		return cases.Case{}, errValidate
	}

	kind := req.Kind()
	opts := req.Common()

	guild, errGuild := p.settings.Guild(ctx, guildID)
	if errGuild != nil {
		return cases.Case{}, errGuild
	}

	targetIsMember := p.members.IsMember(ctx, guildID, targetID)

	kase := cases.New(guildID, kind, targetID, p.targetTag(ctx, guildID, targetID, targetIsMember), opts)

	dur := requestDuration(req)
	if dur > 0 && kind != action.TempBan {
		kase = kase.WithTimeoutDuration(dur)
	}

	// The decision is recorded on the case up front, before any network
	// call, regardless of whether a send is ever attempted.
	decision := notify.Decide(notify.Slot(kind), req, targetIsMember, guild)

	notification := cases.Notification{Intended: decision.Should, Source: decision.Source}
	if !decision.Should {
		notification.SkipReason = decision.Source.String()
	}

	var sentDM *discord.SentMessage

	// A warning's only user visible effect may be the DM itself, so it is
	// fail-closed: no delivery, no case.
	if kind == action.Warn && decision.Should {
		sent, errSend := p.sendDM(ctx, targetID, kind, opts.Reason, guild, dur)
		if errSend != nil {
			return cases.Case{}, errors.Join(errSend, ErrWarnUndeliverable)
		}

		sentDM = &sent
		notification.Attempted = true
		notification.ChannelID = sent.ChannelID
		notification.MessageID = sent.MessageID
	}

	kase = kase.WithNotification(notification)

	created, errCreate := p.store.Create(ctx, kase, p.tempBan(guildID, targetID, req))
	if errCreate != nil {
		return cases.Case{}, errors.Join(errCreate, ErrCreateCase)
	}

	kase = created

	// Remaining before-slot notifications (ban, temp ban, kick) go out after
	// the case exists. A failed send is recorded and does not abort.
	if sentDM == nil && decision.Should && notify.Slot(kind) == notify.Before {
		if sent, errSend := p.sendDM(ctx, targetID, kind, opts.Reason, guild, dur); errSend != nil {
			notification.Attempted = true
			notification.Error = errSend.Error()
		} else {
			sentDM = &sent
			notification.Attempted = true
			notification.ChannelID = sent.ChannelID
			notification.MessageID = sent.MessageID
		}

		kase = kase.WithNotification(notification)

		if errSave := p.store.SetNotification(ctx, guildID, kase.CaseID, notification); errSave != nil {
			slog.Error("Failed to persist notification result", log.ErrAttr(errSave))
		}
	}

	if errAct := p.invoke(ctx, guildID, targetID, req); errAct != nil {
		p.rollback(ctx, kase, sentDM)

		return cases.Case{}, errors.Join(errAct, ErrActionFailed)
	}

	// Audit-event actions stay pending; their log post and any after-slot
	// notification are owed to the reconciler.
	if kind.ProducesAuditEvent() {
		return kase, nil
	}

	kase = p.postLog(ctx, kase, guild)

	return kase, nil
}

func (p *Pipeline) targetTag(ctx context.Context, guildID string, targetID string, isMember bool) string {
	if !isMember {
		return ""
	}

	member, errMember := p.members.Member(ctx, guildID, targetID)
	if errMember != nil || member == nil || member.User == nil {
		return ""
	}

	return member.User.String()
}

// tempBan builds the expiry bookkeeping row for temp bans.
func (p *Pipeline) tempBan(guildID string, targetID string, req action.Request) *cases.TempBan {
	tempBan, isTempBan := req.(action.TempBanRequest)
	if !isTempBan {
		return nil
	}

	return &cases.TempBan{
		GuildID:   guildID,
		UserID:    targetID,
		ExpiresOn: time.Now().Add(tempBan.Duration.ToTimeDuration()),
	}
}

func requestDuration(req action.Request) time.Duration {
	switch typed := req.(type) {
	case action.TimeoutRequest:
		return typed.Duration.ToTimeDuration()
	case action.TempBanRequest:
		return typed.Duration.ToTimeDuration()
	default:
		return 0
	}
}

func (p *Pipeline) sendDM(ctx context.Context, targetID string, kind action.Kind, reason string,
	guild settings.Guild, dur time.Duration,
) (discord.SentMessage, error) {
	return p.notifier.SendDM(ctx, targetID,
		discord.DMEmbed(kind, p.members.GuildName(guild.GuildID), reason, guild.MessageFor(kind), dur))
}

func (p *Pipeline) invoke(ctx context.Context, guildID string, targetID string, req action.Request) error {
	switch typed := req.(type) {
	case action.BanRequest:
		return p.platform.BanMember(ctx, guildID, targetID, typed.Reason, typed.DeleteMessageDays)
	case action.TempBanRequest:
		return p.platform.BanMember(ctx, guildID, targetID, typed.Reason, typed.DeleteMessageDays)
	case action.UnbanRequest:
		return p.platform.UnbanMember(ctx, guildID, targetID)
	case action.KickRequest:
		return p.platform.KickMember(ctx, guildID, targetID, typed.Reason)
	case action.TimeoutRequest:
		return p.platform.TimeoutMember(ctx, guildID, targetID, typed.Duration.ToTimeDuration())
	case action.TimeoutRemoveRequest:
		return p.platform.RemoveTimeout(ctx, guildID, targetID)
	case action.WarnRequest, action.NoteRequest:
		return nil
	default:
		return fmt.Errorf("%w: unhandled action %s", ErrActionFailed, req.Kind())
	}
}

// rollback removes all traces of an action that never happened: the case row,
// its temp ban bookkeeping and any notification already delivered.
func (p *Pipeline) rollback(ctx context.Context, kase cases.Case, sentDM *discord.SentMessage) {
	if sentDM != nil {
		if errDelete := p.notifier.DeleteDM(ctx, *sentDM); errDelete != nil {
			slog.Error("Failed to retract notification during rollback", log.ErrAttr(errDelete),
				slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))
		}
	}

	if errDrop := p.store.Delete(ctx, kase); errDrop != nil {
		slog.Error("Failed to drop case during rollback", log.ErrAttr(errDrop),
			slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))
	}
}

func (p *Pipeline) postLog(ctx context.Context, kase cases.Case, guild settings.Guild) cases.Case {
	if !guild.LogChannelEnabled || guild.LogChannelID == "" {
		return kase
	}

	messageID, errPost := p.poster.Post(ctx, guild.LogChannelID, kase)
	if errPost != nil {
		slog.Error("Failed to post case log message", log.ErrAttr(errPost),
			slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))

		return kase
	}

	if errSave := p.store.SetLogMessageID(ctx, kase.GuildID, kase.CaseID, messageID); errSave != nil {
		slog.Error("Failed to persist log message id", log.ErrAttr(errSave))
	}

	return kase.WithLogMessageID(messageID)
}
