package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/shepherd/internal/admin"
	"github.com/zulandar/shepherd/internal/campaign"
	"github.com/zulandar/shepherd/internal/config"
	"github.com/zulandar/shepherd/internal/db"
	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/menu"
	"github.com/zulandar/shepherd/internal/notify"
	"github.com/zulandar/shepherd/internal/phone"
	"github.com/zulandar/shepherd/internal/transport"
	"github.com/zulandar/shepherd/internal/transport/whatsapp"
	"golang.org/x/term"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Shepherd daemon",
		Long:  "Connects to the chat platform, answers member messages, runs the daily campaigns, and serves the operator HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shepherd.yaml", "path to Shepherd config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Store.Database, err)
	}

	store, err := directory.NewStore(directory.StoreOpts{DB: gormDB})
	if err != nil {
		return err
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintf(out, "Connecting to %s transport...\n", cfg.Transport.Platform)
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	inbound, err := adapter.Listen(ctx)
	if err != nil {
		return err
	}

	adminPhone := ""
	if cfg.Transport.AdminPhone != "" {
		adminPhone = phone.Canonicalize(cfg.Transport.AdminPhone)
	}

	dispatcher, err := campaign.NewDispatcher(campaign.DispatcherOpts{
		Adapter:   adapter,
		BatchSize: cfg.Dispatch.BatchSize,
		Pacer: campaign.NewSleepPacer(
			time.Duration(cfg.Dispatch.MessageDelayMs)*time.Millisecond,
			time.Duration(cfg.Dispatch.BatchDelayMs)*time.Millisecond,
		),
		Out: out,
	})
	if err != nil {
		return err
	}

	reports := make(chan campaign.RunReport, 8)
	scheduler, err := campaign.NewScheduler(campaign.SchedulerOpts{
		Gateway:             store,
		Dispatcher:          dispatcher,
		DB:                  gormDB,
		AnchorCron:          cfg.Scheduler.DailyCron,
		Tick:                time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		VisitorLookbackDays: cfg.Windows.VisitorLookbackDays,
		EventLookaheadDays:  cfg.Windows.EventLookaheadDays,
		Reports:             reports,
		Out:                 out,
	})
	if err != nil {
		return err
	}

	var sinks []notify.Sink
	if adminPhone != "" {
		chatSink, err := notify.NewChatSink(adapter, adminPhone)
		if err != nil {
			return err
		}
		sinks = append(sinks, chatSink)
	}
	slackSink := notify.NewSlackSink(cfg.Admin.SlackBotToken, cfg.Admin.SlackChannel)
	if slackSink.IsEnabled() {
		fmt.Fprintf(out, "Slack notifications enabled (channel %s)\n", cfg.Admin.SlackChannel)
	}
	sinks = append(sinks, slackSink)

	notifier := notify.NewNotifier(notify.NotifierOpts{Sinks: sinks, Out: out})
	go notifier.Run(ctx, reports)

	var adminCmds *menu.AdminCommands
	if adminPhone != "" {
		adminCmds, err = menu.NewAdminCommands(menu.AdminCommandsOpts{
			Gateway:             store,
			RunNow:              scheduler.RunNow,
			Status:              scheduler.StatusText,
			VisitorLookbackDays: cfg.Windows.VisitorLookbackDays,
			EventLookaheadDays:  cfg.Windows.EventLookaheadDays,
		})
		if err != nil {
			return err
		}
	}

	states := menu.NewStateStore()
	defer states.Close()
	router, err := menu.NewRouter(menu.RouterOpts{
		Gateway:    store,
		Adapter:    adapter,
		States:     states,
		Admin:      adminCmds,
		AdminPhone: adminPhone,
		Out:        out,
	})
	if err != nil {
		return err
	}

	go func() {
		err := admin.Start(ctx, admin.ServerOpts{
			Gateway:             store,
			Dispatcher:          dispatcher,
			Scheduler:           scheduler,
			Port:                cfg.Admin.Port,
			VisitorLookbackDays: cfg.Windows.VisitorLookbackDays,
			EventLookaheadDays:  cfg.Windows.EventLookaheadDays,
			Out:                 out,
		})
		if err != nil {
			fmt.Fprintf(out, "admin server: %v\n", err)
			cancel()
		}
	}()

	scheduler.Start(ctx)

	fmt.Fprintf(out, "Shepherd is running. Press Ctrl+C to stop.\n")
	for msg := range inbound {
		router.Handle(ctx, msg)
	}

	fmt.Fprintf(out, "Shepherd stopped.\n")
	return nil
}

// createAdapter builds a transport adapter from the config.
func createAdapter(cfg *config.Config) (transport.Adapter, error) {
	switch cfg.Transport.Platform {
	case "whatsapp":
		// First-time pairing prints a QR code, which needs a real terminal.
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "warning: stdin is not a terminal; QR pairing will not be interactive")
		}
		return whatsapp.New(whatsapp.Opts{DataDir: cfg.Transport.DataDir})
	case "mock":
		return transport.NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("transport: unsupported platform %q", cfg.Transport.Platform)
	}
}
