package moderation_test

import (
	"context"
	"testing"
	"time"

	"github.com/sosodev/duration"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/errs"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/settings"
	"github.com/wardenbot/warden/internal/tests"
)

type fixture struct {
	store    *tests.MemoryStore
	platform *tests.Platform
	notifier *tests.Notifier
	poster   *tests.Poster
	members  *tests.Members
	pipeline *moderation.Pipeline
}

func newFixture(guild settings.Guild) *fixture {
	fix := &fixture{
		store:    tests.NewMemoryStore(),
		platform: tests.NewPlatform(),
		notifier: tests.NewNotifier(),
		poster:   tests.NewPoster(),
		members:  tests.NewMembers("Test Guild"),
	}

	fix.pipeline = moderation.NewPipeline(fix.store, fix.platform, fix.notifier,
		fix.poster, tests.NewSettings(guild), fix.members)

	return fix
}

func logEnabled() settings.Guild {
	guild := settings.Default("guild")
	guild.LogChannelID = "log-channel"
	guild.LogChannelEnabled = true

	return guild
}

func TestBanExecutesAfterNotify(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "spam"}}, "target")
	require.NoError(t, errExec)

	require.Equal(t, int64(1), kase.CaseID)
	require.True(t, kase.Pending)
	require.Equal(t, "spam", kase.Reason)
	require.Equal(t, action.Ban, kase.Kind)

	// The DM goes out before the ban lands, while the target can still
	// receive it.
	require.Equal(t, 1, fix.notifier.SentCount())
	require.Len(t, fix.platform.Calls, 1)
	require.Equal(t, "ban", fix.platform.Calls[0].Op)
	require.Equal(t, "spam", fix.platform.Calls[0].Reason)

	require.True(t, kase.Notification.Intended)
	require.True(t, kase.Notification.Attempted)

	// Pending cases leave the log post to the reconciler.
	require.Zero(t, fix.poster.PostCount())
}

func TestBanRollbackOnPlatformFailure(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)
	fix.platform.Errors["ban"] = errs.ErrMissingPermission

	_, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "spam"}}, "target")
	require.ErrorIs(t, errExec, moderation.ErrActionFailed)
	require.ErrorIs(t, errExec, errs.ErrMissingPermission)

	// Both the case row and the already delivered DM are rolled back.
	require.Zero(t, fix.store.CaseCount())
	require.Len(t, fix.notifier.Deleted, 1)
	require.Equal(t, fix.notifier.Sent[0], fix.notifier.Deleted[0])
}

func TestWarnFailClosedWhenUndeliverable(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)
	fix.notifier.SendErr = errs.ErrUnreachable

	_, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.WarnRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "be nice"}}, "target")
	require.ErrorIs(t, errExec, moderation.ErrWarnUndeliverable)

	// No delivery, no case, no platform calls.
	require.Zero(t, fix.store.CaseCount())
	require.Empty(t, fix.platform.Calls)
}

func TestWarnPostsLogImmediately(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.WarnRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "be nice"}}, "target")
	require.NoError(t, errExec)

	require.False(t, kase.Pending)
	require.NotEmpty(t, kase.LogMessageID)
	require.Equal(t, 1, fix.poster.PostCount())
	require.Empty(t, fix.platform.Calls)
}

func TestNoteIsSilent(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.NoteRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "watchlist", Notify: action.NotifyYes}}, "target")
	require.NoError(t, errExec)

	// Notes never notify, even with an explicit override.
	require.Zero(t, fix.notifier.SentCount())
	require.False(t, kase.Notification.Intended)
	require.Equal(t, notify.SourceActionNotSupported, kase.Notification.Source)
	require.False(t, kase.Pending)
}

func TestTempBanRecordsExpiry(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.TempBanRequest{
			Opts:     action.Opts{ExecutorID: "mod", Reason: "raid"},
			Duration: duration.FromTimeDuration(24 * time.Hour),
		}, "target")
	require.NoError(t, errExec)
	require.Equal(t, action.TempBan, kase.Kind)

	tempBan, found := fix.store.TempBan("guild", "target")
	require.True(t, found)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), tempBan.ExpiresOn, 5*time.Second)
}

func TestUnbanClearsTempBan(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	_, errBan := fix.pipeline.Execute(context.Background(), "guild",
		action.TempBanRequest{
			Opts:     action.Opts{ExecutorID: "mod", Reason: "raid"},
			Duration: duration.FromTimeDuration(time.Hour),
		}, "target")
	require.NoError(t, errBan)

	kase, errUnban := fix.pipeline.Execute(context.Background(), "guild",
		action.UnbanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "appealed", Notify: action.NotifyYes}}, "target")
	require.NoError(t, errUnban)

	_, found := fix.store.TempBan("guild", "target")
	require.False(t, found)

	// Unbans never notify, an override cannot change that.
	require.False(t, kase.Notification.Intended)
	require.Equal(t, notify.SourceUnbanNever, kase.Notification.Source)
}

func TestDMFailureDoesNotAbortBan(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)
	fix.notifier.SendErr = errs.ErrUnreachable

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "spam"}}, "target")
	require.NoError(t, errExec)

	require.Len(t, fix.platform.Calls, 1)
	require.True(t, kase.Notification.Attempted)
	require.NotEmpty(t, kase.Notification.Error)
}

func TestNonMemberSkipsNotify(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "ban evasion"}}, "stranger")
	require.NoError(t, errExec)

	require.Zero(t, fix.notifier.SentCount())
	require.Equal(t, notify.SourceNotMember, kase.Notification.Source)
	require.Equal(t, notify.SourceNotMember.String(), kase.Notification.SkipReason)
}

func TestTimeoutDeferredToReconciler(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("target", nil)

	kase, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.TimeoutRequest{
			Opts:     action.Opts{ExecutorID: "mod", Reason: "cool off"},
			Duration: duration.FromTimeDuration(10 * time.Minute),
		}, "target")
	require.NoError(t, errExec)

	require.True(t, kase.Pending)
	require.Equal(t, 10*time.Minute, kase.TimeoutDuration)

	// Timeouts notify after the fact, so nothing is sent here but the
	// intent is recorded for the reconciler.
	require.Zero(t, fix.notifier.SentCount())
	require.True(t, kase.Notification.Intended)
	require.False(t, kase.Notification.Attempted)
}

func TestInvalidRequestRejected(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())

	_, errExec := fix.pipeline.Execute(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{Reason: "spam"}}, "target")
	require.ErrorIs(t, errExec, action.ErrMissingExecutor)
	require.Zero(t, fix.store.CaseCount())
}
