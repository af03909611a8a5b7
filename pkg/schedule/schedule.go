// Package schedule runs recurring maintenance such as the nightly uploads
// backup and the failed-jobs prune.
//
//	schedule.Daily().At("03:00").Name("backup:uploads").Run(backup.Run)
//	schedule.Hourly().Name("queue:prune-failed").WithoutOverlapping().Run(prune)
//	schedule.Cron("*/15 * * * *").Run(task)
//
//	schedule.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/usgears/storefront/pkg/logger"
)

type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cronExpr  string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

type Schedule struct {
	e *entry
}

var (
	regMu   sync.Mutex
	entries []*entry
)

func Every(n int) *freqBuilder { return &freqBuilder{n: n} }

func Hourly() *Schedule { return Cron("0 * * * *") }

// Daily runs at midnight unless At is used.
func Daily() *Schedule { return Cron("0 0 * * *") }

// Cron takes a 5-field expression: minute hour day-of-month month weekday.
// Fields accept *, N, */N, A-B and comma lists of those.
func Cron(expr string) *Schedule {
	return &Schedule{e: &entry{cronExpr: expr}}
}

type freqBuilder struct{ n int }

func (f *freqBuilder) every(unit time.Duration) *Schedule {
	return &Schedule{e: &entry{interval: time.Duration(f.n) * unit}}
}

func (f *freqBuilder) Seconds() *Schedule { return f.every(time.Second) }
func (f *freqBuilder) Minutes() *Schedule { return f.every(time.Minute) }
func (f *freqBuilder) Hours() *Schedule   { return f.every(time.Hour) }

// At pins a cron-based daily schedule to HH:MM local time.
func (s *Schedule) At(hhmm string) *Schedule {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		panic(fmt.Sprintf("schedule: bad time %q, want HH:MM", hhmm))
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		panic(fmt.Sprintf("schedule: bad time %q, want HH:MM", hhmm))
	}
	fields := strings.Fields(s.e.cronExpr)
	if len(fields) != 5 {
		fields = []string{"*", "*", "*", "*", "*"}
	}
	fields[0], fields[1] = strconv.Itoa(minute), strconv.Itoa(hour)
	s.e.cronExpr = strings.Join(fields, " ")
	s.e.interval = 0
	return s
}

func (s *Schedule) WithoutOverlapping() *Schedule {
	s.e.noOverlap = true
	return s
}

func (s *Schedule) Name(id string) *Schedule {
	s.e.id = id
	return s
}

// Run registers the task. Start begins dispatching.
func (s *Schedule) Run(fn Task) {
	s.e.task = fn
	regMu.Lock()
	defer regMu.Unlock()
	if s.e.id == "" {
		s.e.id = fmt.Sprintf("task-%d", len(entries)+1)
	}
	entries = append(entries, s.e)
}

// Start ticks every second until ctx is cancelled.
func Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		logger.Info("schedule: scheduler started", "tasks", len(snapshot()))
		for {
			select {
			case <-ctx.Done():
				logger.Info("schedule: scheduler stopped")
				return
			case now := <-ticker.C:
				for _, e := range snapshot() {
					if e.isDue(now) {
						go e.dispatch(ctx, now)
					}
				}
			}
		}
	}()
}

// RunDue runs every task due at now and waits for them. `usgears
// schedule:run` calls it from an external cron.
func RunDue(ctx context.Context, now time.Time) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, e := range snapshot() {
		if !e.isDue(now) {
			continue
		}
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			if err := e.dispatch(ctx, now); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", e.id, err))
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()
	return errs
}

// RunNamed runs one task immediately regardless of its schedule.
func RunNamed(ctx context.Context, id string) error {
	for _, e := range snapshot() {
		if e.id == id {
			return e.dispatch(ctx, time.Now())
		}
	}
	return fmt.Errorf("schedule: no task named %q", id)
}

func snapshot() []*entry {
	regMu.Lock()
	defer regMu.Unlock()
	return append([]*entry(nil), entries...)
}

func (e *entry) isDue(now time.Time) bool {
	e.mu.Lock()
	last := e.lastRun
	e.mu.Unlock()

	if e.cronExpr != "" {
		// once per matching minute
		if !last.IsZero() && last.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cronExpr, now)
	}
	return last.IsZero() || now.Sub(last) >= e.interval
}

func (e *entry) dispatch(ctx context.Context, now time.Time) (err error) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return nil
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
			return
		}
		logger.Info("schedule: task finished", "id", e.id, "duration_ms", time.Since(start).Milliseconds())
	}()

	logger.Info("schedule: running task", "id", e.id)
	return e.task(ctx)
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	values := []int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if !matchField(f, values[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	for _, part := range strings.Split(field, ",") {
		if matchPart(part, val) {
			return true
		}
	}
	return false
}

func matchPart(part string, val int) bool {
	switch {
	case part == "*":
		return true
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		return err == nil && step > 0 && val%step == 0
	case strings.Contains(part, "-"):
		a, b, _ := strings.Cut(part, "-")
		lo, err1 := strconv.Atoi(a)
		hi, err2 := strconv.Atoi(b)
		return err1 == nil && err2 == nil && val >= lo && val <= hi
	}
	n, err := strconv.Atoi(part)
	return err == nil && n == val
}

// List describes each registered task, for `usgears schedule:list`.
func List() []string {
	out := make([]string, 0)
	for _, e := range snapshot() {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}

// Flush drops every registered task.
func Flush() {
	regMu.Lock()
	entries = nil
	regMu.Unlock()
}
