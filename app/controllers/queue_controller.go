package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/jobqueue"
)

// QueueStats exposes the notification outbox counters.
type QueueStats interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
}

// QueueController reports the state of the notification queue to operators.
type QueueController struct {
	queue QueueStats
}

func NewQueueController(queue QueueStats) *QueueController {
	return &QueueController{queue: queue}
}

// HandleQueueStats handles GET /admin/queue.
func (qc *QueueController) HandleQueueStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	stats, err := qc.queue.GetJobStats(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_stats_failed"})
	}
	pending, err := qc.queue.GetQueueSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_size_failed"})
	}

	counts := make(map[string]int64, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"pending": pending,
		"jobs":    counts,
	})
}
