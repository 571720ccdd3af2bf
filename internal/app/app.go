// Package app is the composition root: it turns a config into wired
// services and runs the long-lived serve loops.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexanderramin/dealroom/internal/access"
	"github.com/alexanderramin/dealroom/internal/bot"
	"github.com/alexanderramin/dealroom/internal/config"
	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/escrow"
	"github.com/alexanderramin/dealroom/internal/events"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/alexanderramin/dealroom/internal/httpapi"
	"github.com/alexanderramin/dealroom/internal/leak"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/alexanderramin/dealroom/internal/scheduler"
	"github.com/alexanderramin/dealroom/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired process.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Negotiations service.NegotiationService
	Messages     service.MessageService
	Access       service.AccessService
	Reports      service.ReportService
	Catalog      service.CatalogService
	Wallet       service.WalletService

	// Bots act as counter-parties during Serve. Empty unless sandboxed.
	Bots []bot.Party

	database *sql.DB
	clock    func() time.Time
}

type Option func(*options)

type options struct {
	clock  func() time.Time
	ledger service.WalletLedger
}

// WithClock replaces time.Now for every service.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLedger replaces the SQLite reference ledger.
func WithLedger(l service.WalletLedger) Option {
	return func(o *options) { o.ledger = l }
}

// New opens the database and wires every service.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	fees, err := fee.New(cfg.FeeParams())
	if err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	wallet := o.ledger
	if wallet == nil {
		wallet = ledger.NewSQLiteLedger(database, o.clock)
	}

	repos := service.NewSQLiteRepos(database)
	uow := db.NewSQLiteUnitOfWork(database)
	esc := escrow.New(wallet, repos.Deposits, repos.Alerts, publisher, cfg.EscrowConfig(),
		escrow.WithClock(o.clock), escrow.WithLogger(logger))
	svcOpts := []service.Option{
		service.WithClock(o.clock),
		service.WithLogger(logger),
		service.WithObserver(service.NewSlogUseCaseObserver(logger)),
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		Negotiations: service.NewNegotiationService(repos, uow, esc, fees, publisher, cfg.Window(), svcOpts...),
		Messages:     service.NewMessageService(repos, uow, esc, leak.New(), publisher, cfg.LeakDetectionThreshold, svcOpts...),
		Access:       service.NewAccessService(access.NewGate(repos.Sessions, repos.Projects, o.clock), svcOpts...),
		Reports:      service.NewReportService(repos, svcOpts...),
		Catalog:      service.NewCatalogService(repos.Projects, svcOpts...),
		Wallet:       service.NewWalletService(wallet, svcOpts...),
		database:     database,
		clock:        o.clock,
	}
	if cfg.Sandbox {
		a.Bots = SandboxBots()
	}
	return a, nil
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	pubs := events.Multi{events.NewLogPublisher(logger)}
	if cfg.WebhookURL != "" {
		hook, err := events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("webhook publisher: %w", err)
		}
		pubs = append(pubs, hook)
	}
	return pubs, nil
}

func (a *App) Close() error {
	return a.database.Close()
}

// Serve runs the HTTP API, the expiry sweep and the bot driver until ctx is
// done or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	auth, err := httpapi.NewAuthenticator(a.Config.JWTSecret, a.clock)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	srv := &http.Server{
		Addr: a.Config.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Services{
			Negotiations: a.Negotiations,
			Messages:     a.Messages,
			Access:       a.Access,
			Reports:      a.Reports,
		}, auth, a.Logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(ctx, "http api listening", "addr", a.Config.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return scheduler.NewExpiryScheduler(a.Negotiations, a.Config.SweepInterval, a.Logger).Run(ctx)
	})
	g.Go(func() error {
		return scheduler.NewBotDriver(a.Negotiations, a.Messages, a.Config.BotInterval, a.clock, a.Logger, a.Bots...).Run(ctx)
	})
	return g.Wait()
}

// SandboxBots are the personas registered when SANDBOX is on.
func SandboxBots() []bot.Party {
	return []bot.Party{
		&bot.Persona{
			ID:            "sandbox-founder",
			Name:          "Sandbox founder",
			ResponseDelay: 2 * time.Minute,
			AcceptAfter:   4,
			RejectOnLeak:  true,
		},
		&bot.Persona{
			ID:            "sandbox-investor",
			Name:          "Sandbox investor",
			ResponseDelay: 5 * time.Minute,
			RejectOnLeak:  true,
			Replies: []string{
				"What does the use of funds look like?",
				"How far along is the permitting?",
				"We would want a board observer seat.",
			},
		},
	}
}

// NewLogger builds the process logger: JSON for machines, text for people.
func NewLogger(w io.Writer, format string, level slog.Level, isTTY bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" || (format == "auto" && !isTTY) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
