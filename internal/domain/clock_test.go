package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	assert.Equal(t, MorningOpen, ParseClock(93000000))
	assert.Equal(t, MorningClose, ParseClock(113000000))
	assert.Equal(t, AfternoonOpen, ParseClock(130000000))
	assert.Equal(t, AfternoonClose, ParseClock(150000000))
	assert.Equal(t, int64(34_215_120), ParseClock(93015120))
	assert.Equal(t, int64(0), ParseClock(0))
}

func TestFormatClock_RoundTrip(t *testing.T) {
	for h := int64(0); h < 24; h++ {
		for _, m := range []int64{0, 1, 29, 30, 59} {
			for _, s := range []int64{0, 7, 59} {
				for _, ms := range []int64{0, 1, 500, 999} {
					encoded := ((h*100+m)*100+s)*1000 + ms
					assert.Equal(t, encoded, FormatClock(ParseClock(encoded)), "encoded=%d", encoded)
				}
			}
		}
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "09:30:00.000", ClockString(MorningOpen))
	assert.Equal(t, "14:56:03.042", ClockString(ParseClock(145603042)))
}
