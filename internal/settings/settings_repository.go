package settings

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/wardenbot/warden/internal/database"
)

type Repository struct {
	db database.Database
}

func NewRepository(database database.Database) *Repository {
	return &Repository{db: database}
}

// Guild loads the settings row for a guild, falling back to defaults when the
// guild was never configured.
func (r *Repository) Guild(ctx context.Context, guildID string) (Guild, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select("guild_id", "notify_on_ban", "notify_on_timeout", "ban_message", "timeout_message",
			"warn_message", "log_channel_id", "log_channel_enabled", "created_on", "updated_on").
		From("guild_settings").
		Where(sq.Eq{"guild_id": guildID}))
	if errRow != nil {
		return Guild{}, database.DBErr(errRow)
	}

	var guild Guild

	if errScan := row.Scan(&guild.GuildID, &guild.NotifyOnBan, &guild.NotifyOnTimeout,
		&guild.BanMessage, &guild.TimeoutMessage, &guild.WarnMessage,
		&guild.LogChannelID, &guild.LogChannelEnabled, &guild.CreatedOn, &guild.UpdatedOn); errScan != nil {
		if err := database.DBErr(errScan); errors.Is(err, database.ErrNoResult) {
			return Default(guildID), nil
		}

		return Guild{}, database.DBErr(errScan)
	}

	return guild, nil
}

// Save upserts the settings row.
func (r *Repository) Save(ctx context.Context, guild Guild) (Guild, error) {
	guild.UpdatedOn = time.Now()
	if guild.CreatedOn.IsZero() {
		guild.CreatedOn = guild.UpdatedOn
	}

	const query = `
		INSERT INTO guild_settings (guild_id, notify_on_ban, notify_on_timeout, ban_message, timeout_message,
			warn_message, log_channel_id, log_channel_enabled, created_on, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (guild_id) DO UPDATE SET
			notify_on_ban = $2, notify_on_timeout = $3, ban_message = $4, timeout_message = $5,
			warn_message = $6, log_channel_id = $7, log_channel_enabled = $8, updated_on = $10`

	if errExec := r.db.Exec(ctx, query, guild.GuildID, guild.NotifyOnBan, guild.NotifyOnTimeout,
		guild.BanMessage, guild.TimeoutMessage, guild.WarnMessage,
		guild.LogChannelID, guild.LogChannelEnabled, guild.CreatedOn, guild.UpdatedOn); errExec != nil {
		return Guild{}, database.DBErr(errExec)
	}

	return guild, nil
}
