package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/bot"
	"taskboard/internal/config"
	"taskboard/internal/service"
	"taskboard/internal/web"
)

const jobTimeout = 2 * time.Minute

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server, background jobs and the optional Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := service.NewSchedulerService(time.Local, jobTimeout)
	if err := schedulePurge(scheduler, a, cfg.SessionPurgeAt); err != nil {
		return err
	}

	if cfg.BotEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, a.users, a.auth, a.reminders)
		if err != nil {
			return err
		}
		if err := scheduler.Every("overdue-digest", cfg.DigestInterval, telegramBot.SendOverdueDigests); err != nil {
			return err
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("bot stopped")
			}
		}()
	} else {
		log.Info("TELEGRAM_TOKEN not set, overdue digests disabled")
	}

	scheduler.Start()
	defer scheduler.Stop()

	e := web.New(web.Deps{Actions: a.actions, Reader: a.reader, Auth: a.auth}, web.Options{
		CookieName:         cfg.SessionCookie,
		CookieSecure:       cfg.CookieSecure,
		SessionTTL:         cfg.SessionTTL,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	}, log.StandardLogger())

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("task board listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// schedulePurge registers the expired-session purge when sessions live in the
// database. Redis expires its own keys.
func schedulePurge(scheduler *service.SchedulerService, a *app, at string) error {
	store := a.sessionPurger()
	if store == nil {
		return nil
	}
	return scheduler.Daily("purge-sessions", at, func(ctx context.Context) error {
		removed, err := store.PurgeExpired(ctx)
		if err == nil && removed > 0 {
			log.WithField("removed", removed).Info("expired sessions purged")
		}
		return err
	})
}
