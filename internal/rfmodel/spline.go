// Package rfmodel holds the DW1000 RF compensation tables: time-bias and
// distance-bias splines keyed by channel bandwidth and PRF, an RX-level
// spline, power-unit conversions, and free-space path loss.
package rfmodel

import (
	"fmt"
	"math"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

// Piece is one quadratic segment of a spline, valid over the half-open
// interval (Lo, Hi].
type Piece struct {
	Lo, Hi  float64
	A, B, C float64
}

// Spline is an ordered list of pieces covering disjoint intervals.
type Spline []Piece

// Eval returns a + b*x + c*x^2 for the piece whose interval contains x.
func (s Spline) Eval(x float64) (float64, error) {
	for _, p := range s {
		if p.Lo < x && x <= p.Hi {
			return p.A + p.B*x + p.C*x*x, nil
		}
	}
	return 0, fmt.Errorf("rfmodel: x=%v out of spline range: %w", x, rtlserr.ErrOutOfRange)
}

// ClockGHz is the DW1000 system clock frequency used to convert clock
// ticks into nanoseconds.
const ClockGHz = 63.8976

// LightSpeed is the speed of light in vacuum, metres per second.
const LightSpeed = 299792458.0

// BaseLevel maps PRF (16 or 64 MHz) to the RX base level used in the
// power-to-dBu conversion.
var BaseLevel = map[int]float64{
	16: 113.77,
	64: 121.74,
}

// PowerToDBu converts a raw RX power reading to dBu for the given PRF.
func PowerToDBu(power float64, prf int) float64 {
	return 10*math.Log10(power) - BaseLevel[prf]
}

// DBuToPower is the inverse of PowerToDBu.
func DBuToPower(dbu float64, prf int) float64 {
	return math.Pow(10, (dbu+BaseLevel[prf])/10)
}

// RxLevelDBm evaluates the PRF-keyed RX-level spline to convert a raw RX
// power reading into an estimated receive level in dBm.
func RxLevelDBm(power float64, prf int) (float64, error) {
	dbu := PowerToDBu(power, prf)
	spline, ok := rxLevelSpline[prf]
	if !ok {
		return 0, fmt.Errorf("rfmodel: no RX level spline for prf=%d: %w", prf, rtlserr.ErrOutOfRange)
	}
	v, err := spline.Eval(dbu + 105)
	if err != nil {
		return 0, err
	}
	return v - 105, nil
}

func bandwidthForChannel(channel int) int {
	switch channel {
	case 4, 7:
		return 900
	default:
		return 500
	}
}

// TimeCompClocks evaluates the time-bias spline for the given RX level
// (dBm), channel, and PRF, returning a correction in DW1000 clock ticks.
func TimeCompClocks(dbm float64, channel, prf int) (float64, error) {
	bw := bandwidthForChannel(channel)
	spline, err := lookupSpline(timeCompSpline, bw, prf)
	if err != nil {
		return 0, err
	}
	return spline.Eval(dbm)
}

// DistCompMetres evaluates the distance-bias spline for the given RX level
// (dBm), channel, and PRF, returning a correction in metres.
func DistCompMetres(dbm float64, channel, prf int) (float64, error) {
	bw := bandwidthForChannel(channel)
	spline, err := lookupSpline(distCompSpline, bw, prf)
	if err != nil {
		return 0, err
	}
	return spline.Eval(dbm)
}

func lookupSpline(table map[int]map[int]Spline, bw, prf int) (Spline, error) {
	byPRF, ok := table[bw]
	if !ok {
		return nil, fmt.Errorf("rfmodel: no compensation spline for bandwidth=%d: %w", bw, rtlserr.ErrOutOfRange)
	}
	spline, ok := byPRF[prf]
	if !ok {
		return nil, fmt.Errorf("rfmodel: no compensation spline for prf=%d: %w", prf, rtlserr.ErrOutOfRange)
	}
	return spline, nil
}

// channelFreqMHz is the per-channel centre frequency used by the
// free-space path loss model. Channels 0 and 6 have no entry and are
// rejected as unknown.
var channelFreqMHz = map[int]float64{
	1: 3494.4,
	2: 3993.6,
	3: 4492.8,
	4: 3993.6,
	5: 6489.6,
	7: 6489.6,
}

const ufbCC = 4 * math.Pi / LightSpeed

// PathLossDB returns the free-space path loss in dB for a distance m
// (metres) on the given channel.
func PathLossDB(m float64, channel int) (float64, error) {
	freq, ok := channelFreqMHz[channel]
	if !ok {
		return 0, fmt.Errorf("rfmodel: unknown channel %d: %w", channel, rtlserr.ErrOutOfRange)
	}
	return 20 * math.Log10(m*ufbCC*freq*1e6), nil
}

// PathLossToDist is the inverse of PathLossDB: given an attenuation in dB,
// returns the implied distance in metres.
func PathLossToDist(db float64, channel int) (float64, error) {
	freq, ok := channelFreqMHz[channel]
	if !ok {
		return 0, fmt.Errorf("rfmodel: unknown channel %d: %w", channel, rtlserr.ErrOutOfRange)
	}
	return math.Pow(10, db/20) / (ufbCC * freq * 1e6), nil
}

// TxPowerForRange computes the transmit power needed to achieve rxLevel at
// distance m on the given channel.
func TxPowerForRange(channel int, m, rxLevel float64) (float64, error) {
	loss, err := PathLossDB(m, channel)
	if err != nil {
		return 0, err
	}
	return rxLevel + loss, nil
}

// RxPowerAtRange computes the expected RX level at distance m given a TX
// power, on the given channel.
func RxPowerAtRange(channel int, m, txLevel float64) (float64, error) {
	loss, err := PathLossDB(m, channel)
	if err != nil {
		return 0, err
	}
	return txLevel - loss, nil
}

// DistFromLevels inverts the free-space model to estimate distance from a
// TX/RX level pair on the given channel.
func DistFromLevels(channel int, txLevel, rxLevel float64) (float64, error) {
	return PathLossToDist(txLevel-rxLevel, channel)
}
