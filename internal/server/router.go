package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/dataset-cache/internal/cache"
	"github.com/any-hub/dataset-cache/internal/fetcher"
)

// DatasetFetcher 描述执行缓存/下载决策的组件，测试中可注入假实现。
type DatasetFetcher interface {
	Fetch(ctx context.Context, identifier, baseFolder string) fetcher.Result
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Fetcher    DatasetFetcher
	Store      cache.Store
	BaseFolder string
	ListenPort int
}

const contextKeyRequestID = "_dataset_cache_request_id"

// NewApp builds a Fiber application with request-id middleware and the
// dataset endpoints.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	h := &handlers{
		logger:     opts.Logger,
		fetcher:    opts.Fetcher,
		store:      opts.Store,
		baseFolder: opts.BaseFolder,
	}
	app.Get("/fetch", h.fetch)
	app.Get("/datasets/:key/:split/rows", h.rows)
	app.Get("/datasets/:key", h.describe)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID，并写入响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func renderError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":      code,
		"request_id": RequestID(c),
	})
}
