package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/wardenbot/warden/internal/audit"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/discord"
	"github.com/wardenbot/warden/internal/log"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/settings"
)

var (
	BuildVersion = "master" //nolint:gochecknoglobals
	BuildCommit  = ""       //nolint:gochecknoglobals
	BuildDate    = ""       //nolint:gochecknoglobals
)

// Warden owns the whole object graph and its lifecycle. Init wires it, Serve
// blocks until shutdown, Close tears it down in reverse order.
type Warden struct {
	conf        config.Config
	database    database.Database
	bot         *discord.Discord
	settings    *settings.Repository
	caseRepo    *cases.Repository
	caseService *cases.Service
	tempBans    *cases.TempBanRepository
	expirations *cases.ExpirationMonitor
	pipeline    *moderation.Pipeline
	moderation  *moderation.Service
	engine      *audit.Engine
	sentry      *sentry.Client

	logCloser func()
}

func NewWarden() (*Warden, error) {
	conf, errConfig := config.Read(cfgFile)
	if errConfig != nil {
		return nil, errConfig
	}

	return &Warden{conf: conf}, nil
}

func (w *Warden) Init(ctx context.Context) error {
	w.setupSentry()

	w.logCloser = log.MustCreateLogger(ctx, w.conf.Log.File, w.conf.Log.Level, w.conf.Sentry.DSN != "", BuildVersion)

	slog.Info("Starting warden...",
		slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit),
		slog.String("date", BuildDate))

	dbConn := database.New(w.conf.Database.DSN, w.conf.Database.AutoMigrate, w.conf.Database.LogQueries)
	if errConnect := dbConn.Connect(ctx); errConnect != nil {
		slog.Error("Cannot initialize database", log.ErrAttr(errConnect))

		return errConnect
	}

	w.database = dbConn

	bot, errDiscord := discord.New(w.conf.Discord.Token, w.conf.Discord.AppID)
	if errDiscord != nil {
		return errDiscord
	}

	w.bot = bot

	w.settings = settings.NewRepository(w.database)
	w.caseRepo = cases.NewRepository(w.database)
	w.tempBans = cases.NewTempBanRepository(w.database)

	poster := discord.NewCaseLogPoster(w.bot)

	w.caseService = cases.NewService(w.caseRepo, poster, w.settings)
	w.pipeline = moderation.NewPipeline(w.caseRepo, w.bot, w.bot, poster, w.settings, w.bot)
	w.moderation = moderation.NewService(w.pipeline, w.bot, w.bot)
	w.engine = audit.NewEngine(w.caseRepo, w.bot, poster, w.settings, w.bot)
	w.expirations = cases.NewExpirationMonitor(w.tempBans, w.bot)

	// Handlers must be registered before the gateway connection opens or
	// early entries are dropped.
	w.bot.OnAuditLogEntry(w.engine.HandleEntry(ctx))

	return nil
}

func (w *Warden) setupSentry() {
	if w.conf.Sentry.DSN == "" {
		slog.Info("Sentry.io support is disabled. To enable, set sentry.dsn.")

		return
	}

	sentryClient, errSentry := log.NewSentryClient(w.conf.Sentry.DSN, w.conf.Sentry.Tracing,
		w.conf.Sentry.SampleRate, BuildVersion)
	if errSentry != nil {
		slog.Error("Failed to setup sentry client")

		return
	}

	slog.Info("Sentry.io support is enabled.")
	w.sentry = sentryClient
}

// StartBackground launches the temp ban expiry sweep. The sweep doubles as
// the retry path for unbans that failed at expiry time.
func (w *Warden) StartBackground(ctx context.Context) {
	go func() {
		w.expirations.Update(ctx)

		ticker := time.NewTicker(w.conf.Moderation.TempBanSweepFreq)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.expirations.Update(ctx)
			}
		}
	}()
}

func (w *Warden) Serve(rootCtx context.Context) error {
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errStart := w.bot.Start(); errStart != nil {
		slog.Error("Failed to connect to gateway", log.ErrAttr(errStart))

		return errStart
	}

	slog.Info("Connected to gateway")

	<-ctx.Done()

	return nil
}

func (w *Warden) Close(_ context.Context) error {
	if w.bot != nil {
		if errClose := w.bot.Close(); errClose != nil {
			slog.Error("Failed to close gateway connection", log.ErrAttr(errClose))
		}
	}

	if w.database != nil {
		if errClose := w.database.Close(); errClose != nil {
			slog.Error("Failed to close database", log.ErrAttr(errClose))
		}
	}

	if w.sentry != nil {
		w.sentry.Flush(2 * time.Second)
	}

	if w.logCloser != nil {
		w.logCloser()
	}

	return nil
}
