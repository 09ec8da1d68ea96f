package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/lecture"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker consumes mark events and writes the attendance audit trail.
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:marks")
	}

	lectures := lecture.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "mark" {
			continue
		}

		var rec attendance.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			log.Printf("bad mark payload: %v", err)
			continue
		}

		lec, err := lectures.Get(ctx, rec.LectureID)
		if err != nil {
			log.Printf("audit: student %s marked for lecture %s at %s (subject unknown: %v)",
				rec.StudentID, rec.LectureID, rec.MarkedAt.Format(time.RFC3339), err)
			continue
		}

		log.Printf("audit: student %s marked for %s (lecture %s, teacher %s) at %s",
			rec.StudentID, lec.Subject, lec.ID, lec.TeacherID, rec.MarkedAt.Format(time.RFC3339))
	}

	log.Println("worker stopped")
}
