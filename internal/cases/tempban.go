package cases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/errs"
	"github.com/wardenbot/warden/internal/log"
)

// TempBan is the ephemeral record tracking when a platform side ban must be
// reversed. It lives outside the case record so the sweep can act on it
// regardless of case state.
type TempBan struct {
	GuildID   string
	UserID    string
	ExpiresOn time.Time
}

type TempBanRepository struct {
	db database.Database
}

func NewTempBanRepository(database database.Database) *TempBanRepository {
	return &TempBanRepository{db: database}
}

// Expired returns every temp ban whose expiry has passed.
func (r *TempBanRepository) Expired(ctx context.Context) ([]TempBan, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select("guild_id", "user_id", "expires_on").
		From("temp_ban").
		Where(sq.LtOrEq{"expires_on": time.Now()}))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var expired []TempBan

	for rows.Next() {
		var ban TempBan
		if errScan := rows.Scan(&ban.GuildID, &ban.UserID, &ban.ExpiresOn); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		expired = append(expired, ban)
	}

	return expired, nil
}

func (r *TempBanRepository) Delete(ctx context.Context, guildID string, userID string) error {
	return database.DBErr(r.db.ExecDeleteBuilder(ctx, r.db.
		Builder().
		Delete("temp_ban").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})))
}

// Unbanner reverses the platform side ban when a temp ban expires.
type Unbanner interface {
	UnbanMember(ctx context.Context, guildID string, userID string) error
}

func NewExpirationMonitor(tempBans *TempBanRepository, platform Unbanner) *ExpirationMonitor {
	return &ExpirationMonitor{tempBans: tempBans, platform: platform}
}

// ExpirationMonitor periodically reverses expired temp bans. It is the retry
// mechanism for temp ban reversal: a failed unban stays in the table and is
// picked up again on the next sweep.
type ExpirationMonitor struct {
	tempBans *TempBanRepository
	platform Unbanner
}

func (monitor *ExpirationMonitor) Update(ctx context.Context) {
	expired, errExpired := monitor.tempBans.Expired(ctx)
	if errExpired != nil && !errors.Is(errExpired, database.ErrNoResult) {
		slog.Error("Failed to fetch expired temp bans", log.ErrAttr(errExpired))

		return
	}

	for _, ban := range expired {
		if errUnban := monitor.platform.UnbanMember(ctx, ban.GuildID, ban.UserID); errUnban != nil {
			// A missing ban means someone beat us to it, drop the record.
			if !errors.Is(errUnban, errs.ErrUnknownBan) {
				slog.Error("Failed to reverse expired temp ban", log.ErrAttr(errUnban),
					slog.String("guild_id", ban.GuildID), slog.String("user_id", ban.UserID))

				continue
			}
		}

		if errDrop := monitor.tempBans.Delete(ctx, ban.GuildID, ban.UserID); errDrop != nil {
			slog.Error("Failed to drop expired temp ban", log.ErrAttr(errDrop))

			continue
		}

		slog.Info("Temp ban expired",
			slog.String("guild_id", ban.GuildID), slog.String("user_id", ban.UserID))
	}
}
