package cases

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wardenbot/warden/internal/log"
	"github.com/wardenbot/warden/internal/settings"
)

// Store is the persistence surface the case service needs.
type Store interface {
	FindByID(ctx context.Context, guildID string, caseID int64) (Case, error)
	FindByUserNotPending(ctx context.Context, guildID string, userID string) ([]Case, error)
	SetReason(ctx context.Context, guildID string, caseID int64, reason string) error
	SetReasonRange(ctx context.Context, guildID string, fromID int64, toID int64, reason string) error
	SetLogMessageID(ctx context.Context, guildID string, caseID int64, messageID string) error
}

// LogPoster renders a case into the guild's public mod log channel.
type LogPoster interface {
	Post(ctx context.Context, channelID string, kase Case) (string, error)
	Edit(ctx context.Context, channelID string, messageID string, kase Case) error
}

type SettingsProvider interface {
	Guild(ctx context.Context, guildID string) (settings.Guild, error)
}

type Service struct {
	store    Store
	poster   LogPoster
	settings SettingsProvider
}

func NewService(store Store, poster LogPoster, settingsProvider SettingsProvider) *Service {
	return &Service{store: store, poster: poster, settings: settingsProvider}
}

func (s *Service) ByID(ctx context.Context, guildID string, caseID int64) (Case, error) {
	return s.store.FindByID(ctx, guildID, caseID)
}

func (s *Service) ByUser(ctx context.Context, guildID string, userID string) ([]Case, error) {
	return s.store.FindByUserNotPending(ctx, guildID, userID)
}

// SetReason updates the stored reason and re-renders the public log message.
// A case whose earlier log post failed gets a fresh post here, which is the
// repair path for missing log messages.
func (s *Service) SetReason(ctx context.Context, guildID string, caseID int64, reason string) (Case, error) {
	kase, errCase := s.store.FindByID(ctx, guildID, caseID)
	if errCase != nil {
		return Case{}, errors.Join(errCase, ErrCaseNotFound)
	}

	if errSave := s.store.SetReason(ctx, guildID, caseID, reason); errSave != nil {
		return Case{}, errors.Join(errSave, ErrSaveCase)
	}

	kase = kase.WithReason(reason)

	s.renderLog(ctx, kase)

	return kase, nil
}

// SetReasonRange applies one reason to every case in a contiguous id range.
// Log messages for the affected cases are not re-rendered here.
func (s *Service) SetReasonRange(ctx context.Context, guildID string, fromID int64, toID int64, reason string) error {
	if errSave := s.store.SetReasonRange(ctx, guildID, fromID, toID, reason); errSave != nil {
		return errors.Join(errSave, ErrSaveCase)
	}

	return nil
}

// renderLog edits the existing log message in place, or posts a fresh one
// when the case never got a message id. Failures are logged, never fatal.
func (s *Service) renderLog(ctx context.Context, kase Case) {
	guild, errGuild := s.settings.Guild(ctx, kase.GuildID)
	if errGuild != nil {
		slog.Error("Failed to load guild settings for log render", log.ErrAttr(errGuild))

		return
	}

	if !guild.LogChannelEnabled || guild.LogChannelID == "" {
		return
	}

	if kase.LogMessageID != "" {
		if errEdit := s.poster.Edit(ctx, guild.LogChannelID, kase.LogMessageID, kase); errEdit != nil {
			slog.Error("Failed to edit case log message", log.ErrAttr(errEdit),
				slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))
		}

		return
	}

	messageID, errPost := s.poster.Post(ctx, guild.LogChannelID, kase)
	if errPost != nil {
		slog.Error("Failed to post case log message", log.ErrAttr(errPost),
			slog.String("guild_id", kase.GuildID), slog.Int64("case_id", kase.CaseID))

		return
	}

	if errSave := s.store.SetLogMessageID(ctx, kase.GuildID, kase.CaseID, messageID); errSave != nil {
		slog.Error("Failed to persist log message id", log.ErrAttr(errSave))
	}
}

var (
	_ Store            = (*Repository)(nil)
	_ SettingsProvider = (*settings.Repository)(nil)
)
