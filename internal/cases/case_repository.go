package cases

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/notify"
)

//nolint:gochecknoglobals
var caseColumns = []string{
	"guild_id", "case_id", "action_type", "action_time", "target_id", "target_tag",
	"executor_id", "reason", "log_message_id", "attachments", "pending", "timeout_duration_ms",
	"notify_intended", "notify_source", "notify_attempted", "notify_skip_reason",
	"notify_channel_id", "notify_message_id", "notify_error",
}

type Repository struct {
	db database.Database
}

func NewRepository(database database.Database) *Repository {
	return &Repository{db: database}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(scanner rowScanner) (Case, error) {
	var (
		kase       Case
		kind       int
		source     int
		timeoutMS  int64
		actionTime time.Time
	)

	if errScan := scanner.Scan(&kase.GuildID, &kase.CaseID, &kind, &actionTime, &kase.TargetID,
		&kase.TargetTag, &kase.ExecutorID, &kase.Reason, &kase.LogMessageID, &kase.Attachments,
		&kase.Pending, &timeoutMS,
		&kase.Notification.Intended, &source, &kase.Notification.Attempted,
		&kase.Notification.SkipReason, &kase.Notification.ChannelID,
		&kase.Notification.MessageID, &kase.Notification.Error); errScan != nil {
		return Case{}, database.DBErr(errScan)
	}

	kase.Kind = action.Kind(kind)
	kase.ActionTime = actionTime
	kase.TimeoutDuration = time.Duration(timeoutMS) * time.Millisecond
	kase.Notification.Source = notify.Source(source)

	return kase, nil
}

// Create persists a new case, allocating the next case id for the guild from
// the counter row inside the same transaction. Temp ban bookkeeping rides
// along atomically: an insert for temp bans, a delete for unbans.
func (r *Repository) Create(ctx context.Context, kase Case, tempBan *TempBan) (Case, error) {
	errTx := r.db.WrapTx(ctx, func(tx pgx.Tx) error {
		const allocQuery = `
			INSERT INTO case_counter (guild_id, last_case_id) VALUES ($1, 1)
			ON CONFLICT (guild_id) DO UPDATE SET last_case_id = case_counter.last_case_id + 1
			RETURNING last_case_id`

		if errAlloc := tx.QueryRow(ctx, allocQuery, kase.GuildID).Scan(&kase.CaseID); errAlloc != nil {
			return database.DBErr(errAlloc)
		}

		const insertQuery = `
			INSERT INTO moderation_case (guild_id, case_id, action_type, action_time, target_id, target_tag,
				executor_id, reason, log_message_id, attachments, pending, timeout_duration_ms,
				notify_intended, notify_source, notify_attempted, notify_skip_reason,
				notify_channel_id, notify_message_id, notify_error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

		if _, errInsert := tx.Exec(ctx, insertQuery, kase.GuildID, kase.CaseID, int(kase.Kind),
			kase.ActionTime, kase.TargetID, kase.TargetTag, kase.ExecutorID, kase.Reason,
			kase.LogMessageID, kase.Attachments, kase.Pending, kase.TimeoutDuration.Milliseconds(),
			kase.Notification.Intended, int(kase.Notification.Source), kase.Notification.Attempted,
			kase.Notification.SkipReason, kase.Notification.ChannelID, kase.Notification.MessageID,
			kase.Notification.Error); errInsert != nil {
			return database.DBErr(errInsert)
		}

		switch kase.Kind {
		case action.TempBan:
			if tempBan != nil {
				const upsert = `
					INSERT INTO temp_ban (guild_id, user_id, expires_on) VALUES ($1, $2, $3)
					ON CONFLICT (guild_id, user_id) DO UPDATE SET expires_on = $3`

				if _, errBan := tx.Exec(ctx, upsert, tempBan.GuildID, tempBan.UserID, tempBan.ExpiresOn); errBan != nil {
					return database.DBErr(errBan)
				}
			}
		case action.Unban:
			if _, errDrop := tx.Exec(ctx, `DELETE FROM temp_ban WHERE guild_id = $1 AND user_id = $2`,
				kase.GuildID, kase.TargetID); errDrop != nil {
				return database.DBErr(errDrop)
			}
		default:
		}

		return nil
	})
	if errTx != nil {
		return Case{}, errTx
	}

	return kase, nil
}

// Delete removes a case row as a compensating action after a failed platform
// call, along with any temp ban bookkeeping the creation wrote.
func (r *Repository) Delete(ctx context.Context, kase Case) error {
	return r.db.WrapTx(ctx, func(tx pgx.Tx) error {
		if _, errDel := tx.Exec(ctx, `DELETE FROM moderation_case WHERE guild_id = $1 AND case_id = $2`,
			kase.GuildID, kase.CaseID); errDel != nil {
			return database.DBErr(errDel)
		}

		if kase.Kind == action.TempBan {
			if _, errBan := tx.Exec(ctx, `DELETE FROM temp_ban WHERE guild_id = $1 AND user_id = $2`,
				kase.GuildID, kase.TargetID); errBan != nil {
				return database.DBErr(errBan)
			}
		}

		return nil
	})
}

func (r *Repository) FindByID(ctx context.Context, guildID string, caseID int64) (Case, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select(caseColumns...).
		From("moderation_case").
		Where(sq.Eq{"guild_id": guildID, "case_id": caseID}))
	if errRow != nil {
		return Case{}, database.DBErr(errRow)
	}

	return scanCase(row)
}

// FindByUserNotPending returns the settled cases recorded against a user,
// newest first.
func (r *Repository) FindByUserNotPending(ctx context.Context, guildID string, userID string) ([]Case, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select(caseColumns...).
		From("moderation_case").
		Where(sq.Eq{"guild_id": guildID, "target_id": userID, "pending": false}).
		OrderBy("action_time DESC"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var collected []Case

	for rows.Next() {
		kase, errScan := scanCase(rows)
		if errScan != nil {
			return nil, errScan
		}

		collected = append(collected, kase)
	}

	return collected, nil
}

// FindPending returns the most recent pending case for the guild + target +
// action type created within maxAge, or database.ErrNoResult.
func (r *Repository) FindPending(ctx context.Context, guildID string, targetID string, kind action.Kind, maxAge time.Duration) (Case, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select(caseColumns...).
		From("moderation_case").
		Where(sq.And{
			sq.Eq{"guild_id": guildID, "target_id": targetID, "action_type": int(kind), "pending": true},
			sq.GtOrEq{"action_time": time.Now().Add(-maxAge)},
		}).
		OrderBy("action_time DESC").
		Limit(1))
	if errRow != nil {
		return Case{}, database.DBErr(errRow)
	}

	return scanCase(row)
}

// MarkSettled clears the pending flag. Settling an already settled case is a
// no-op, not an error.
func (r *Repository) MarkSettled(ctx context.Context, guildID string, caseID int64) error {
	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("moderation_case").
		Set("pending", false).
		Where(sq.Eq{"guild_id": guildID, "case_id": caseID})))
}

func (r *Repository) SetLogMessageID(ctx context.Context, guildID string, caseID int64, messageID string) error {
	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("moderation_case").
		Set("log_message_id", messageID).
		Where(sq.Eq{"guild_id": guildID, "case_id": caseID})))
}

func (r *Repository) SetNotification(ctx context.Context, guildID string, caseID int64, notification Notification) error {
	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("moderation_case").
		Set("notify_intended", notification.Intended).
		Set("notify_source", int(notification.Source)).
		Set("notify_attempted", notification.Attempted).
		Set("notify_skip_reason", notification.SkipReason).
		Set("notify_channel_id", notification.ChannelID).
		Set("notify_message_id", notification.MessageID).
		Set("notify_error", notification.Error).
		Where(sq.Eq{"guild_id": guildID, "case_id": caseID})))
}

func (r *Repository) SetReason(ctx context.Context, guildID string, caseID int64, reason string) error {
	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("moderation_case").
		Set("reason", reason).
		Where(sq.Eq{"guild_id": guildID, "case_id": caseID})))
}

// SetReasonRange applies one reason across a contiguous case id range in a
// single statement, used to clean up after bulk actions.
func (r *Repository) SetReasonRange(ctx context.Context, guildID string, fromID int64, toID int64, reason string) error {
	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("moderation_case").
		Set("reason", reason).
		Where(sq.And{
			sq.Eq{"guild_id": guildID},
			sq.GtOrEq{"case_id": fromID},
			sq.LtOrEq{"case_id": toID},
		})))
}
