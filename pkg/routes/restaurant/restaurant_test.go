package restaurant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader holds restaurants 1 and 2 folded into primary 4, and a dirty 3.
type fakeReader struct {
	restaurants map[int64]models.Restaurant
	inspections map[int64]int64
	primaries   map[int64]int64
}

func newFakeReader() *fakeReader {
	r := &fakeReader{
		restaurants: map[int64]models.Restaurant{
			1: {ID: 1, Name: "Matt's Burgers", Clean: true},
			2: {ID: 2, Name: "Mat's Burger Joint", Clean: true},
			3: {ID: 3, Name: "Linh's Diner"},
			4: {ID: 4, Name: "Mat's Burger Joint", Clean: true},
		},
		inspections: map[int64]int64{100: 1, 101: 3, 102: 4},
		primaries:   map[int64]int64{1: 4, 2: 4},
	}
	return r
}

func notFound(kind string, id int64) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s %d not found", kind, id))
}

func (f *fakeReader) RestaurantByInspection(_ context.Context, inspectionID int64) (models.Restaurant, error) {
	id, ok := f.inspections[inspectionID]
	if !ok {
		return models.Restaurant{}, notFound("inspection", inspectionID)
	}
	return f.restaurants[id], nil
}

func (f *fakeReader) Restaurant(_ context.Context, id int64) (models.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return models.Restaurant{}, notFound("restaurant", id)
	}
	return r, nil
}

func (f *fakeReader) PrimaryOf(_ context.Context, id int64) (int64, bool, error) {
	p, ok := f.primaries[id]
	return p, ok, nil
}

func (f *fakeReader) Originals(_ context.Context, primaryID int64) ([]models.Restaurant, error) {
	var out []models.Restaurant
	for _, id := range []int64{1, 2, 3, 4} {
		if f.primaries[id] == primaryID {
			out = append(out, f.restaurants[id])
		}
	}
	return out, nil
}

func (f *fakeReader) RestaurantDetail(ctx context.Context, id int64) (*models.RestaurantDetail, error) {
	r, err := f.Restaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.RestaurantDetail{Restaurant: r, Inspections: []models.Inspection{}}
	for inspectionID, restaurantID := range f.inspections {
		if restaurantID == id {
			detail.Inspections = append(detail.Inspections, models.Inspection{ID: inspectionID, RestaurantID: id})
		}
	}
	return detail, nil
}

func get(target string) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	NewHandler(newFakeReader()).Register(e.Group("/api/v1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGet(t *testing.T) {
	rec := get("/api/v1/restaurants/4")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.RestaurantDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(4), body.ID)
	require.Len(t, body.Inspections, 1)
	assert.Equal(t, int64(102), body.Inspections[0].ID)
}

func TestGet_Errors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get("/api/v1/restaurants/99").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/restaurants/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/restaurants/0").Code)
}

func TestAllByInspection(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantPrimary int64
		wantLinked  []int64
	}{
		{name: "original resolves to its primary", target: "/api/v1/restaurants/all-by-inspection/100", wantPrimary: 4, wantLinked: []int64{1, 2}},
		{name: "primary resolves to itself", target: "/api/v1/restaurants/all-by-inspection/102", wantPrimary: 4, wantLinked: []int64{1, 2}},
		{name: "dirty restaurant", target: "/api/v1/restaurants/all-by-inspection/101", wantPrimary: 3, wantLinked: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(tt.target)
			require.Equal(t, http.StatusOK, rec.Code)

			var body models.LinkedView
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantPrimary, body.Primary.ID)
			linked := []int64{}
			for _, r := range body.Linked {
				linked = append(linked, r.ID)
			}
			assert.Equal(t, tt.wantLinked, linked)
		})
	}
}

func TestAllByInspection_UnknownInspection(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get("/api/v1/restaurants/all-by-inspection/999").Code)
}
