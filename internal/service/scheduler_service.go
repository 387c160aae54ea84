package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Job is scheduled work. Its context is cancelled after the scheduler's job timeout.
type Job func(ctx context.Context) error

// SchedulerService runs named background jobs on cron schedules. Overlapping runs
// of the same job are skipped and panics are recovered.
type SchedulerService struct {
	cron    *cron.Cron
	timeout time.Duration
	entries map[string]cron.EntryID
}

func NewSchedulerService(loc *time.Location, timeout time.Duration) *SchedulerService {
	logger := cronLogger{entry: log.WithField("component", "scheduler")}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: timeout,
		entries: make(map[string]cron.EntryID),
	}
}

// Daily registers job to run every day at the given HH:MM.
func (s *SchedulerService) Daily(name, timeStr string, job Job) error {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return err
	}
	return s.add(name, spec, job)
}

// Every registers job to run at a fixed interval, rounded down to whole seconds.
func (s *SchedulerService) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.add(name, fmt.Sprintf("@every %ds", seconds), job)
}

// Next reports when the named job runs next. It is zero before Start.
func (s *SchedulerService) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) add(name, spec string, job Job) error {
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("job %q already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *SchedulerService) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	entry := log.WithField("job", name)
	if err := job(ctx); err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.WithField("took", time.Since(started)).Debug("job finished")
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *log.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(keysAndValues []interface{}) log.Fields {
	fields := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
