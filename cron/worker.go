package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"trustlink/config"
	"trustlink/models"
	"trustlink/services/notification"

	"github.com/hibiken/asynq"
)

// InitLoginEventWorker runs the async worker draining login notifications.
func InitLoginEventWorker(sender *notification.PushSender) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeLoginEvent, handleLoginEventTask(sender))

	// Start async worker with retry logic.
	go func() {
		log.Println("[LoginEventWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[LoginEventWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[LoginEventWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleLoginEventTask(sender *notification.PushSender) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var event models.LoginEventPayload
		if err := json.Unmarshal(task.Payload(), &event); err != nil {
			log.Printf("[LoginEventHandler] Invalid payload: %v", err)
			return err
		}

		if err := sender.SendLoginPush(ctx, event); err != nil {
			log.Printf("[LoginEventHandler] Failed to send notification: %v", err)
			return err
		}
		return nil
	}
}
