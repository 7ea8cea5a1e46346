package synapse

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// TaskHandler produces a reply for one incoming task.
type TaskHandler func(TaskRequest) (TaskResponse, error)

// Server is the miner-side task endpoint.
type Server struct {
	app     *fiber.App
	cfg     Config
	handler TaskHandler
}

func NewServer(cfg Config, handler TaskHandler) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodySizeLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(ZstdMiddleware())

	s := &Server{app: app, cfg: cfg, handler: handler}
	app.Post("/task", s.handleTask)
	return s
}

func (s *Server) handleTask(c *fiber.Ctx) error {
	var req TaskRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal task request")
		return c.Status(fiber.StatusBadRequest).JSON(TaskResponse{})
	}

	log.Debug().Str("task_id", req.TaskID).Int64("slot", req.Slot).Msg("received task")

	resp, err := s.handler(req)
	if err != nil {
		log.Error().Err(err).Str("task_id", req.TaskID).Msg("task handler failed")
		return c.Status(fiber.StatusInternalServerError).JSON(TaskResponse{TaskID: req.TaskID})
	}
	if resp.TaskID == "" {
		resp.TaskID = req.TaskID
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.app.Listen(s.cfg.Address); err != nil {
			log.Error().Err(err).Msg("server listen failed")
		}
	}()
	<-ctx.Done()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
