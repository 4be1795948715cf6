package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"mess/internal/attendance"
	"mess/internal/config"
	"mess/internal/mealclock"
	"mess/internal/qr"
	"mess/internal/queue"
	"mess/internal/store"
)

// Worker runs the scheduled jobs: shortly after each slot's cutoff it
// defaults unresponded students to YES, and at serving time it
// re-issues tokens with a fresh validity window. It also consumes the
// token queue and pre-renders QR images into the cache.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	mess, err := mealclock.New(cfg.MessTimezone)
	if err != nil {
		log.Fatalf("timezone init failed: %v", err)
	}
	loc, err := time.LoadLocation(cfg.MessTimezone)
	if err != nil {
		log.Fatalf("load location: %v", err)
	}

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		if db == nil {
			log.Fatalf("open database: %v", err)
		}
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "mess:tokens")
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, mess, cfg.TokenValidity, cfg.YesPoints)
	resolver := attendance.NewResolver(svc, mess)
	renderer := qr.NewRenderer(redisClient.Client, cfg.TokenValidity)

	publishTokens := func(records []attendance.Record) {
		for _, rec := range records {
			if rec.Token == nil {
				continue
			}
			if err := q.Publish(ctx, queue.Message{Type: queue.TypeToken, Body: []byte(*rec.Token)}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}
	}

	sched := cron.New(cron.WithLocation(loc))

	// Auto-resolve at each slot's cutoff.
	resolveJob := func(slot mealclock.Slot) func() {
		return func() {
			records, err := resolver.ResolveDefaults(ctx, slot)
			if err != nil {
				log.Printf("auto-resolve %s failed: %v", slot, err)
				return
			}
			publishTokens(records)
		}
	}
	mustSchedule(sched, "0 6 * * *", resolveJob(mealclock.Breakfast))
	mustSchedule(sched, "0 11 * * *", resolveJob(mealclock.Lunch))
	mustSchedule(sched, "0 17 * * *", resolveJob(mealclock.Dinner))

	// Refresh tokens at serving time so same-day re-entry scans get a
	// fresh window.
	refreshJob := func(slot mealclock.Slot) func() {
		return func() {
			records, err := resolver.RefreshTokens(ctx, slot)
			if err != nil {
				log.Printf("token refresh %s failed: %v", slot, err)
				return
			}
			publishTokens(records)
		}
	}
	mustSchedule(sched, "0 8 * * *", refreshJob(mealclock.Breakfast))
	mustSchedule(sched, "0 13 * * *", refreshJob(mealclock.Lunch))
	mustSchedule(sched, "0 19 * * *", refreshJob(mealclock.Dinner))

	sched.Start()
	defer sched.Stop()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, schedules armed, waiting for tokens...")
	for msg := range messages {
		if msg.Type != queue.TypeToken {
			continue
		}
		token := string(msg.Body)
		if err := renderer.Warm(ctx, token); err != nil {
			log.Printf("qr pre-render failed for %s: %v", token, err)
		}
	}

	log.Println("worker stopped")
}

func mustSchedule(sched *cron.Cron, spec string, job func()) {
	if _, err := sched.AddFunc(spec, job); err != nil {
		log.Fatalf("schedule %q failed: %v", spec, err)
	}
}
