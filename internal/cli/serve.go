package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ppe-monitor/internal/classifier"
	"ppe-monitor/internal/handler"
	"ppe-monitor/internal/monitor"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/service"
	"ppe-monitor/pkg/httpx"
	"ppe-monitor/pkg/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run camera monitors, the Telegram admin bot and the daily digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.config

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if n, err := a.workers.ImportRoster(cfg.Roster); err != nil {
		logrus.WithError(err).Warn("Roster import incomplete")
	} else if n > 0 {
		logrus.Infof("Roster imported: %d worker(s)", n)
	}

	var bot *telegram.Client
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewClient(cfg.TelegramToken, cfg.LogLevel == "debug")
		if err != nil {
			return err
		}
		logrus.Infof("Authorized on account %s", bot.Bot.Self.UserName)
	} else {
		logrus.Warn("TELEGRAM_BOT_TOKEN is not set, admin bot disabled")
	}

	webhook := notify.NewWebhook(a.settings, httpx.Client())
	fanout := newFanout(opts, webhook, bot)
	defer fanout.Wait()
	logrus.Infof("Notification channels: %v", fanout.Channels())

	recorder := service.NewRecorder(a.violations, a.settings, fanout, cfg.Monitor.SiteLocation)

	clf, err := classifier.New(ctx, cfg.Classifier, httpx.Client())
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	supervisor, err := monitor.NewSupervisorFromConfig(cfg, clf, recorder, httpx.Client())
	if err != nil {
		return err
	}

	digest := service.NewDigestService(a.violations, fanout, cfg.Location())
	if err := digest.Schedule(cfg.DigestSchedule); err != nil {
		return err
	}

	var autoStart []string
	if cfg.Monitor.AutoStart {
		autoStart = monitor.AutoStartIDs(cfg)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return supervisor.Run(gctx, autoStart)
	})

	g.Go(func() error {
		digest.Start()
		<-gctx.Done()
		digest.Stop()
		return nil
	})

	if bot != nil {
		botHandler := handler.NewHandler(
			gctx,
			bot,
			supervisor,
			a.settings,
			a.payroll,
			a.workers,
			a.attendance,
			a.violations,
			webhook,
			cfg,
		)
		updates := bot.Updates()
		g.Go(func() error {
			botHandler.HandleUpdates(updates)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			bot.Stop()
			return nil
		})
	}

	logrus.WithFields(logrus.Fields{
		"cameras":    supervisor.IDs(),
		"classifier": clf.Name(),
	}).Info("PPE monitor started. Press Ctrl+C to stop.")

	err = g.Wait()
	logrus.Info("PPE monitor stopped gracefully")
	return err
}

// newFanout assembles the notification channels that are configured. The webhook is
// always present and stays silent until it is enabled in settings.
func newFanout(opts *RootOptions, webhook *notify.Webhook, bot *telegram.Client) *notify.Fanout {
	cfg := opts.config
	channels := []notify.Channel{webhook}

	if s := notify.NewSlack(cfg.SlackBotToken, cfg.SlackChannelID); s != nil {
		channels = append(channels, s)
	}
	if bot != nil {
		if t := notify.NewTelegram(bot, cfg.AdminChatIDs); t != nil {
			channels = append(channels, t)
		}
	}
	return notify.NewFanout(channels...)
}
