package timing

import (
	"log"
	"math"
	"strconv"
	"strings"
	"time"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() time.Duration {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	return time.Duration(float64(time.Second) / float64(f))
}

// Cycle converts a duration to the number of whole ticks that fit in it.
func (f Freq) Cycle(d time.Duration) Tick {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	return Tick(math.Floor(d.Seconds() * float64(f)))
}

// String prints the frequency with the largest unit that keeps it >= 1.
func (f Freq) String() string {
	switch {
	case f >= GHz:
		return strconv.FormatFloat(float64(f/GHz), 'f', -1, 64) + "GHz"
	case f >= MHz:
		return strconv.FormatFloat(float64(f/MHz), 'f', -1, 64) + "MHz"
	case f >= KHz:
		return strconv.FormatFloat(float64(f/KHz), 'f', -1, 64) + "kHz"
	default:
		return strconv.FormatFloat(float64(f), 'f', -1, 64) + "Hz"
	}
}

// ParseFreq parses strings such as "1kHz", "2.5MHz" or "100" (Hz).
func ParseFreq(s string) (Freq, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	unit := Hz
	for _, u := range []struct {
		suffix string
		freq   Freq
	}{
		{"ghz", GHz},
		{"mhz", MHz},
		{"khz", KHz},
		{"hz", Hz},
	} {
		if strings.HasSuffix(lower, u.suffix) {
			unit = u.freq
			lower = strings.TrimSuffix(lower, u.suffix)

			break
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(lower), 64)
	if err != nil {
		return 0, err
	}

	if v <= 0 {
		return 0, strconv.ErrRange
	}

	return Freq(v) * unit, nil
}

// WallClock converts elapsed wall time into ticks at a fixed frequency. The
// first tick (1) covers the first period after the clock is created.
type WallClock struct {
	freq  Freq
	start time.Time
	now   func() time.Time
}

// NewWallClock creates a WallClock ticking at the given frequency.
func NewWallClock(freq Freq) *WallClock {
	return newWallClockWithSource(freq, time.Now)
}

func newWallClockWithSource(freq Freq, now func() time.Time) *WallClock {
	if freq <= 0 {
		log.Panic("frequency must be positive")
	}

	return &WallClock{
		freq:  freq,
		start: now(),
		now:   now,
	}
}

// Freq returns the frequency of the clock.
func (c *WallClock) Freq() Freq {
	return c.freq
}

// Now returns the number of elapsed periods plus one.
func (c *WallClock) Now() Tick {
	return c.freq.Cycle(c.now().Sub(c.start)) + 1
}
