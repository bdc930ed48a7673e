package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"edclub/internal/attendance"
	"edclub/internal/badges"
	"edclub/internal/config"
	"edclub/internal/queue"
	"edclub/internal/store"
)

// Worker consumes attendance messages and grants automatic badges.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "edclub:attendance")
	}

	attSvc := attendance.NewService(attendance.NewRepository(db.Client), redisClient.Client, cfg.RankCacheTTL)
	badgeSvc := badges.NewService(badges.NewRepository(db.Client))

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeAttendance {
			continue
		}

		userID := string(msg.Body)
		progress, err := attSvc.Progress(ctx, userID)
		if err != nil {
			log.Printf("progress lookup failed for %s: %v", userID, err)
			continue
		}

		granted, err := badgeSvc.AutoAward(ctx, userID, progress)
		if err != nil {
			log.Printf("auto award failed for %s: %v", userID, err)
			continue
		}
		if len(granted) > 0 {
			log.Printf("user %s granted: %v", userID, granted)
		}
	}

	log.Println("worker stopped")
}
