package store

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rtls/internal/tdoa"
)

// CoordinateRollup summarizes a tag's recent solved-coordinate history:
// per-axis mean and the variability of the raw-vs-filtered residual, the
// same percentile/variance shape the teacher's internal/db computes over
// radar-transit speed samples with gonum/stat.
type CoordinateRollup struct {
	Samples       int
	MeanX, MeanY, MeanZ float64
	P50ResidualM  float64
	P95ResidualM  float64
}

// Rollup computes a CoordinateRollup over a tag's last limit solved
// coordinates.
func (db *DB) Rollup(tagEUI64 string, limit int) (CoordinateRollup, error) {
	rows, err := db.Query(`SELECT x, y, z, filtered_x, filtered_y, filtered_z FROM coordinates
		WHERE tag_eui64 = ? ORDER BY ts_unix_nanos DESC LIMIT ?`, tagEUI64, limit)
	if err != nil {
		return CoordinateRollup{}, fmt.Errorf("store: rollup for %s: %w", tagEUI64, err)
	}
	defer rows.Close()

	var xs, ys, zs, residuals []float64
	for rows.Next() {
		var raw, filtered tdoa.Point
		if err := rows.Scan(&raw.X, &raw.Y, &raw.Z, &filtered.X, &filtered.Y, &filtered.Z); err != nil {
			return CoordinateRollup{}, err
		}
		xs = append(xs, raw.X)
		ys = append(ys, raw.Y)
		zs = append(zs, raw.Z)
		residuals = append(residuals, dist(raw, filtered))
	}
	if err := rows.Err(); err != nil {
		return CoordinateRollup{}, err
	}
	if len(xs) == 0 {
		return CoordinateRollup{}, nil
	}

	sort.Float64s(residuals)
	return CoordinateRollup{
		Samples:      len(xs),
		MeanX:        stat.Mean(xs, nil),
		MeanY:        stat.Mean(ys, nil),
		MeanZ:        stat.Mean(zs, nil),
		P50ResidualM: stat.Quantile(0.50, stat.Empirical, residuals, nil),
		P95ResidualM: stat.Quantile(0.95, stat.Empirical, residuals, nil),
	}, nil
}

func dist(a, b tdoa.Point) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
