package scheduler

import (
	"math"
	"time"
)

// Jitter holds the factors that stretch the adjusted speed into the delay
// window a ping is drawn from.
type Jitter struct {
	Low  float64
	High float64
}

// DefaultJitter is the deployed (100, 800) window.
var DefaultJitter = Jitter{Low: 100, High: 800}

// AdjustedSpeed maps the slider value onto the non-linear scale used for
// delays: (speed+15)^1.2 / 10.
func AdjustedSpeed(speed int) float64 {
	return math.Pow(float64(speed+15), 1.2) / 10
}

// Bounds returns the shortest and longest delay Delay can produce for speed.
func (j Jitter) Bounds(speed int) (time.Duration, time.Duration) {
	return j.Delay(speed, 0), j.Delay(speed, 1)
}

// Delay picks the wait before the next ping. r is a uniform draw in [0, 1).
func (j Jitter) Delay(speed int, r float64) time.Duration {
	adjusted := AdjustedSpeed(speed)
	low := j.Low * adjusted
	high := j.High * adjusted
	ms := math.Round(r*(high-low) + low)
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}
