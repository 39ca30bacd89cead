package domain

import (
	"context"
	"log/slog"
)

// RegionUndetermined is the region name for points no region covers, and for
// failed lookups.
const RegionUndetermined = "Неопределен"

// RegionLookup resolves a point to the name of the subject of the federation
// that contains it.
type RegionLookup interface {
	RegionFor(ctx context.Context, lat, lon float64) (string, error)
}

// EnrichWithRegions resolves the departure and arrival regions of rec. A nil
// lookup leaves both empty; a failed lookup is logged and marks the point
// RegionUndetermined.
func EnrichWithRegions(ctx context.Context, rec FlightRecord, lookup RegionLookup, logger *slog.Logger) EnrichedFlight {
	out := EnrichedFlight{FlightRecord: rec, ProcessedAt: Now()}
	if lookup == nil {
		return out
	}
	out.DepartureRegion = resolveRegion(ctx, lookup, rec.Departure, rec.SID, "departure", logger)
	out.ArrivalRegion = resolveRegion(ctx, lookup, rec.Arrival, rec.SID, "arrival", logger)
	return out
}

func resolveRegion(ctx context.Context, lookup RegionLookup, c *Coordinate, sid, point string, logger *slog.Logger) string {
	if c == nil {
		return ""
	}
	name, err := lookup.RegionFor(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("region lookup failed",
			"sid", sid,
			"point", point,
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		return RegionUndetermined
	}
	if name == "" {
		return RegionUndetermined
	}
	return name
}
