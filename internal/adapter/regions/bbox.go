package regions

import (
	"context"

	"github.com/bas-flights/telegram-etl/internal/domain"
)

// Region is a named rectangle in decimal degrees, inclusive on every edge.
type Region struct {
	Name   string
	Code   string
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether the point lies inside the rectangle.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// DefaultRegions are simplified outlines of the subjects the service knows
// about. Order matters: cities are listed before the oblasts around them.
var DefaultRegions = []Region{
	{Name: "Санкт-Петербург", Code: "78", MinLat: 59.5, MinLon: 29.5, MaxLat: 60.5, MaxLon: 31.0},
	{Name: "Ленинградская область", Code: "47", MinLat: 58.5, MinLon: 27.5, MaxLat: 61.5, MaxLon: 35.5},
	{Name: "Москва", Code: "77", MinLat: 55.1, MinLon: 36.8, MaxLat: 56.0, MaxLon: 38.0},
	{Name: "Московская область", Code: "50", MinLat: 54.2, MinLon: 35.1, MaxLat: 57.0, MaxLon: 40.2},
	{Name: "Мурманская область", Code: "51", MinLat: 66.0, MinLon: 28.0, MaxLat: 70.0, MaxLon: 42.0},
	{Name: "Красноярский край", Code: "24", MinLat: 51.0, MinLon: 84.0, MaxLat: 77.0, MaxLon: 114.0},
	{Name: "Новосибирская область", Code: "54", MinLat: 53.0, MinLon: 75.0, MaxLat: 56.5, MaxLon: 85.5},
	{Name: "Ростовская область", Code: "61", MinLat: 46.0, MinLon: 38.0, MaxLat: 50.5, MaxLon: 44.0},
	{Name: "Свердловская область", Code: "66", MinLat: 56.0, MinLon: 57.0, MaxLat: 62.0, MaxLon: 66.5},
	{Name: "Тюменская область", Code: "72", MinLat: 55.0, MinLon: 65.0, MaxLat: 73.5, MaxLon: 85.0},
}

// BoundingBoxLookup resolves points against a fixed list of rectangles. The
// first rectangle containing the point wins.
type BoundingBoxLookup struct {
	regions []Region
}

// NewBoundingBoxLookup returns a lookup over regions, or DefaultRegions when
// regions is empty.
func NewBoundingBoxLookup(regions []Region) *BoundingBoxLookup {
	if len(regions) == 0 {
		regions = DefaultRegions
	}
	return &BoundingBoxLookup{regions: regions}
}

func (l *BoundingBoxLookup) RegionFor(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range l.regions {
		if r.Contains(lat, lon) {
			return r.Name, nil
		}
	}
	return domain.RegionUndetermined, nil
}

// Regions returns the rectangles in lookup order.
func (l *BoundingBoxLookup) Regions() []Region {
	out := make([]Region, len(l.regions))
	copy(out, l.regions)
	return out
}
