package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Point is a postgres point. The zero value is NULL.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
}

// NewPoint returns a valid point.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y, Valid: true}
}

// String renders the point in postgres text form, e.g. "(41.9,-87.6)".
func (p Point) String() string {
	if !p.Valid {
		return ""
	}
	return "(" + strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64) + ")"
}

// ParsePoint parses the postgres text form of a point.
func ParsePoint(s string) (Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Point{}, nil
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid point %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point x %q: %w", parts[0], err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point y %q: %w", parts[1], err)
	}
	return NewPoint(x, y), nil
}

// Scan implements sql.Scanner.
func (p *Point) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Point{}
		return nil
	case []byte:
		parsed, err := ParsePoint(string(v))
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case string:
		parsed, err := ParsePoint(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Point", src)
	}
}

// Value implements driver.Valuer.
func (p Point) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	return p.String(), nil
}

// Centroid returns the mean of the valid points, or an invalid point when there are none.
func Centroid(points []Point) Point {
	var sumX, sumY float64
	n := 0
	for _, p := range points {
		if !p.Valid {
			continue
		}
		sumX += p.X
		sumY += p.Y
		n++
	}
	if n == 0 {
		return Point{}
	}
	return NewPoint(sumX/float64(n), sumY/float64(n))
}
