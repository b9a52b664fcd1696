// Package discord is the only place that talks to the Discord API. It exposes
// the moderation calls, direct messages, mod log posting and the gateway audit
// log stream the reconciler consumes, mapping REST failures onto the shared
// error taxonomy.
package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/errs"
	"github.com/wardenbot/warden/internal/log"
)

var (
	ErrConnect = errors.New("failed to connect to discord gateway")
	ErrSession = errors.New("failed to create discord session")
)

// AuditEntryHandler receives one call per audit log entry the gateway
// delivers. Delivery is at least once and never batched.
type AuditEntryHandler func(entry *discordgo.GuildAuditLogEntryCreate)

type Discord struct {
	session *discordgo.Session
	appID   string
}

func New(token string, appID string) (*Discord, error) {
	session, errSession := discordgo.New("Bot " + token)
	if errSession != nil {
		return nil, errors.Join(errSession, ErrSession)
	}

	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildModeration

	return &Discord{session: session, appID: appID}, nil
}

// OnAuditLogEntry must be called before Start so no entries are missed.
func (d *Discord) OnAuditLogEntry(handler AuditEntryHandler) {
	d.session.AddHandler(func(_ *discordgo.Session, entry *discordgo.GuildAuditLogEntryCreate) {
		handler(entry)
	})
}

func (d *Discord) Start() error {
	d.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		slog.Info("Discord gateway connected")
	})

	if errOpen := d.session.Open(); errOpen != nil {
		return errors.Join(errOpen, ErrConnect)
	}

	return nil
}

func (d *Discord) Close() error {
	if d.session == nil {
		return nil
	}

	return d.session.Close() //nolint:wrapcheck
}

// mapErr categorizes REST failures. Unmapped codes collapse into
// errs.ErrRequestFailed with the original error joined for context.
func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError

	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return errs.ErrMissingPermission
		case discordgo.ErrCodeUnknownBan:
			return errs.ErrUnknownBan
		case discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownMember:
			return errs.ErrUnknownTarget
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return errs.ErrUnreachable
		}
	}

	return errors.Join(err, errs.ErrRequestFailed)
}

// Member fetches a guild member, preferring gateway state over REST.
func (d *Discord) Member(ctx context.Context, guildID string, userID string) (*discordgo.Member, error) {
	if member, errState := d.session.State.Member(guildID, userID); errState == nil {
		return member, nil
	}

	member, errMember := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if errMember != nil {
		return nil, mapErr(errMember)
	}

	return member, nil
}

// IsMember reports whether the user is currently in the guild.
func (d *Discord) IsMember(ctx context.Context, guildID string, userID string) bool {
	member, errMember := d.Member(ctx, guildID, userID)
	if errMember != nil {
		if !errors.Is(errMember, errs.ErrUnknownTarget) {
			slog.Warn("Failed to resolve member", log.ErrAttr(errMember),
				slog.String("guild_id", guildID), slog.String("user_id", userID))
		}

		return false
	}

	return member != nil
}

// GuildName resolves the guild's display name for notification embeds,
// falling back to the id when state has nothing.
func (d *Discord) GuildName(guildID string) string {
	if guild, errGuild := d.session.State.Guild(guildID); errGuild == nil && guild.Name != "" {
		return guild.Name
	}

	return guildID
}
