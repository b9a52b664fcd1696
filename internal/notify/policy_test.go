package notify_test

import (
	"testing"
	"time"

	"github.com/sosodev/duration"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/settings"
)

func testGuild() settings.Guild {
	return settings.Default("10")
}

func TestWarnAlwaysNotifies(t *testing.T) {
	t.Parallel()

	guild := testGuild()
	guild.NotifyOnBan = false
	guild.NotifyOnTimeout = false

	for _, override := range []action.Notify{action.NotifyDefault, action.NotifyYes, action.NotifyNo} {
		req := action.WarnRequest{Opts: action.Opts{ExecutorID: "1", Notify: override}}
		decision := notify.Decide(notify.Before, req, true, guild)
		require.True(t, decision.Should)
		require.Equal(t, notify.SourceWarnAlways, decision.Source)
	}
}

func TestUnbanNeverNotifies(t *testing.T) {
	t.Parallel()

	for _, override := range []action.Notify{action.NotifyDefault, action.NotifyYes, action.NotifyNo} {
		req := action.UnbanRequest{Opts: action.Opts{ExecutorID: "1", Reason: "appeal accepted", Notify: override}}
		decision := notify.Decide(notify.After, req, true, testGuild())
		require.False(t, decision.Should)
	}
}

func TestWrongTiming(t *testing.T) {
	t.Parallel()

	banAfter := notify.Decide(notify.After, action.BanRequest{Opts: action.Opts{ExecutorID: "1", Reason: "x"}}, true, testGuild())
	require.False(t, banAfter.Should)
	require.Equal(t, notify.SourceActionNotSupported, banAfter.Source)

	timeoutBefore := notify.Decide(notify.Before, action.TimeoutRequest{
		Opts:     action.Opts{ExecutorID: "1", Reason: "x"},
		Duration: duration.FromTimeDuration(time.Minute),
	}, true, testGuild())
	require.False(t, timeoutBefore.Should)
	require.Equal(t, notify.SourceActionNotSupported, timeoutBefore.Source)
}

func TestTargetNotMember(t *testing.T) {
	t.Parallel()

	decision := notify.Decide(notify.Before, action.WarnRequest{Opts: action.Opts{ExecutorID: "1"}}, false, testGuild())
	require.False(t, decision.Should)
	require.Equal(t, notify.SourceNotMember, decision.Source)
}

func TestNoteCannotNotify(t *testing.T) {
	t.Parallel()

	req := action.NoteRequest{Opts: action.Opts{ExecutorID: "1", Reason: "keep an eye out"}}
	decision := notify.Decide(notify.After, req, true, testGuild())
	require.False(t, decision.Should)
	require.Equal(t, notify.SourceActionNotSupported, decision.Source)
}

func TestSuppressedWithoutReason(t *testing.T) {
	t.Parallel()

	// No reason, no custom message: suppressed even with an explicit yes.
	req := action.BanRequest{Opts: action.Opts{ExecutorID: "1", Notify: action.NotifyYes}}
	decision := notify.Decide(notify.Before, req, true, testGuild())
	require.False(t, decision.Should)
	require.Equal(t, notify.SourceSuppressed, decision.Source)

	// A configured custom message lifts the suppression.
	guild := testGuild()
	guild.BanMessage = "You were banned from the community."
	decision = notify.Decide(notify.Before, req, true, guild)
	require.True(t, decision.Should)
	require.Equal(t, notify.SourceOverride, decision.Source)
}

func TestExplicitOverride(t *testing.T) {
	t.Parallel()

	guild := testGuild()
	guild.NotifyOnBan = false

	yes := action.BanRequest{Opts: action.Opts{ExecutorID: "1", Reason: "spam", Notify: action.NotifyYes}}
	decision := notify.Decide(notify.Before, yes, true, guild)
	require.True(t, decision.Should)
	require.Equal(t, notify.SourceOverride, decision.Source)

	guild.NotifyOnBan = true

	no := action.BanRequest{Opts: action.Opts{ExecutorID: "1", Reason: "spam", Notify: action.NotifyNo}}
	decision = notify.Decide(notify.Before, no, true, guild)
	require.False(t, decision.Should)
	require.Equal(t, notify.SourceOverride, decision.Source)
}

func TestGuildToggleFallback(t *testing.T) {
	t.Parallel()

	guild := testGuild()
	req := action.BanRequest{Opts: action.Opts{ExecutorID: "1", Reason: "spam"}}

	decision := notify.Decide(notify.Before, req, true, guild)
	require.True(t, decision.Should)
	require.Equal(t, notify.SourceGuildToggle, decision.Source)

	guild.NotifyOnBan = false
	decision = notify.Decide(notify.Before, req, true, guild)
	require.False(t, decision.Should)

	// Kicks have no toggle and default to off.
	kick := action.KickRequest{Opts: action.Opts{ExecutorID: "1", Reason: "spam"}}
	decision = notify.Decide(notify.Before, kick, true, guild)
	require.False(t, decision.Should)
	require.Equal(t, notify.SourceGuildToggle, decision.Source)
}
