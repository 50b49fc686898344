package restaurant

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Reader serves the restaurant read endpoints.
type Reader interface {
	linkage.ViewReader
	RestaurantDetail(ctx context.Context, id int64) (*models.RestaurantDetail, error)
}

type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

// Register registers restaurant routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/restaurants/:id", h.Get)
	g.GET("/restaurants/all-by-inspection/:inspection_id", h.AllByInspection)
}

type restaurantParams struct {
	ID int64 `param:"id" validate:"gt=0"`
}

type inspectionParams struct {
	InspectionID int64 `param:"inspection_id" validate:"gt=0"`
}

func bindParams(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindPathParams(c, dst); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validate.Struct(dst); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return nil
}

// Get returns a restaurant and the inspections that reference it
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "restaurant_handler.Get")
	defer span.End()

	var p restaurantParams
	if err := bindParams(c, &p); err != nil {
		return err
	}

	detail, err := h.reader.RestaurantDetail(ctx, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// AllByInspection returns the linked view of the restaurant an inspection references
func (h *Handler) AllByInspection(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "restaurant_handler.AllByInspection")
	defer span.End()

	var p inspectionParams
	if err := bindParams(c, &p); err != nil {
		return err
	}

	view, err := linkage.ResolveLinkedView(ctx, h.reader, p.InspectionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}
