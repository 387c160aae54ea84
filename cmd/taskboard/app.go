package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/action"
	"taskboard/internal/config"
	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/view"
)

const viewCacheTTL = 5 * time.Minute

// app holds the process-wide collaborators. It is built once at start-up and
// shared read-only afterwards.
type app struct {
	cfg config.Config

	users     *repository.UserRepository
	boards    *repository.BoardRepository
	tasks     *repository.TaskRepository
	dbStore   *session.DBStore
	redisOn   bool
	auth      *service.AuthService
	mutations *service.MutationService
	reminders *service.ReminderService
	reader    view.Reader
	actions   *action.Dispatcher

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	a := &app{cfg: cfg}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	a.users = repository.NewUserRepository(db)
	a.boards = repository.NewBoardRepository(db)
	a.tasks = repository.NewTaskRepository(db)
	a.dbStore = session.NewDBStore(repository.NewSessionRepository(db), cfg.SessionTTL)

	var (
		sessions  session.Store  = a.dbStore
		reader    view.Reader    = view.NewDBReader(a.boards, a.tasks)
		refresher view.Refresher = view.NopRefresher{}
	)
	if cfg.RedisEnabled() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		cache := view.NewCache(reader, client, viewCacheTTL)
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
		reader = cache
		a.redisOn = true
		refresher = cache
		log.WithField("addr", opts.Addr).Info("redis enabled for sessions and views")
	}

	a.auth = service.NewAuthService(a.users, sessions, service.NewBcryptHasher(cfg.BcryptCost))
	a.mutations = service.NewMutationService(a.boards, a.tasks)
	a.reminders = service.NewReminderService(a.tasks, a.boards)
	a.reader = reader
	a.actions = action.New(a.mutations, a.auth, refresher)
	return a, nil
}

// sessionPurger returns the DB session store when it is the active one.
func (a *app) sessionPurger() *session.DBStore {
	if a.redisOn {
		return nil
	}
	return a.dbStore
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("close")
		}
	}
}
