package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/seatify-gateway/internal/config"
	"github.com/iliyamo/seatify-gateway/internal/queue"
)

// The worker records gateway activity events to logs/activity.log.  It only
// needs the broker URL, so it does not require the gateway's APP_* settings.
func main() {
	_ = godotenv.Load()
	url := config.RabbitURL()
	dir := os.Getenv("ACTIVITY_LOG_DIR")
	if dir == "" {
		dir = "logs"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Printf("activity-consumer: consuming %s into %s", queue.ActivityQueue, dir)
	if err := queue.StartActivityConsumer(ctx, url, dir); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
