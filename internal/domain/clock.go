package domain

import "fmt"

// Los feeds codifican la hora del día como un entero decimal HHMMSSmmm
// (p. ej. 93000000 = 09:30:00.000). Internamente trabajamos con
// milisegundos desde medianoche.

// ParseClock convierte un HHMMSSmmm codificado a milisegundos desde medianoche.
func ParseClock(encoded int64) int64 {
	ms := encoded % 1000
	encoded /= 1000
	secs := encoded % 100
	encoded /= 100
	mins := encoded % 100
	hours := encoded / 100

	return (hours*3600+mins*60+secs)*1000 + ms
}

// FormatClock es la inversa de ParseClock.
func FormatClock(ms int64) int64 {
	millis := ms % 1000
	t := ms / 1000
	hours := t / 3600
	t %= 3600
	mins := t / 60
	secs := t % 60

	return (hours*10000+mins*100+secs)*1000 + millis
}

// ClockString formatea milisegundos desde medianoche como HH:MM:SS.mmm.
func ClockString(ms int64) string {
	t := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t/3600, (t%3600)/60, t%60, ms%1000)
}
