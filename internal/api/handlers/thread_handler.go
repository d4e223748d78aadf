package handlers

import (
	"log/slog"

	job "github.com/Akash01010101/threadcraft/internal/jobs"
	"github.com/Akash01010101/threadcraft/internal/queue"
	"github.com/Akash01010101/threadcraft/internal/service"
	"github.com/Akash01010101/threadcraft/internal/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
)

type ThreadHandler struct {
	s           service.ThreadService
	scan        *job.ScanJob
	AsynqClient *asynq.Client
}

func NewThreadHandler(service service.ThreadService, scan *job.ScanJob, asynqClient *asynq.Client) *ThreadHandler {
	return &ThreadHandler{s: service, scan: scan, AsynqClient: asynqClient}
}

func (h *ThreadHandler) CreateThread(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var tc transfer.ThreadCreation
	if err := c.BodyParser(&tc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	creds := GetCredentials(c)
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing user credentials",
		})
	}

	threadID, delay, err := h.s.Create(c.Context(), userID, &tc, creds)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueueThread(h.AsynqClient, queue.PublishThreadPayload{ThreadID: threadID}, delay)
	if err != nil {
		// The scanner will pick the thread up even without a queued task.
		slog.Error("failed to enqueue publish task", "thread_id", threadID, "error", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      threadID,
		"message": "Thread scheduled successfully",
	})
}

func (h *ThreadHandler) ListThreads(c *fiber.Ctx) error {
	userID := GetUserID(c)

	threads, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list threads",
		})
	}

	return c.Status(fiber.StatusOK).JSON(threads)
}

func (h *ThreadHandler) RemoveThread(c *fiber.Ctx) error {
	userID := GetUserID(c)
	threadID := c.Query("id")

	err := h.s.Remove(c.Context(), userID, threadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove thread",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// RunScheduler triggers one due-work pass, for external periodic
// invokers that cannot rely on the in-process cron.
func (h *ThreadHandler) RunScheduler(c *fiber.Ctx) error {
	if err := h.scan.Scan(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Scheduler run failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Scheduled threads processed",
	})
}
