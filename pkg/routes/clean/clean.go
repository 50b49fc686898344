package clean

import (
	"context"
	"net/http"

	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Runner executes one clean pass.
type Runner interface {
	Run(ctx context.Context, mode linkage.Mode) (*linkage.PassResult, error)
}

type Handler struct {
	runner      Runner
	defaultMode linkage.Mode
}

func NewHandler(runner Runner, defaultMode linkage.Mode) *Handler {
	return &Handler{runner: runner, defaultMode: defaultMode}
}

// Register registers the clean pass routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/clean", h.Clean)
	g.POST("/clean", h.Clean)
}

// Clean runs a pass in the mode given by ?mode=, falling back to the configured
// default. The pass result is returned with 200 on success and 500 on failure.
func (h *Handler) Clean(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "clean_handler.Clean")
	defer span.End()

	mode := h.defaultMode
	if raw := c.QueryParam("mode"); raw != "" {
		parsed, err := linkage.ParseMode(raw)
		if err != nil {
			return err
		}
		mode = parsed
	}

	res, err := h.runner.Run(ctx, mode)
	if res == nil {
		return err
	}
	if res.Status == linkage.StatusError {
		return c.JSON(http.StatusInternalServerError, res)
	}
	return c.JSON(http.StatusOK, res)
}
