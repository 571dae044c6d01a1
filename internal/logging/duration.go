package logging

import (
	"time"

	"github.com/dustin/go-humanize/english"
)

// waitUnits are the units used to describe the wait until the next poll, largest first.
var waitUnits = []struct {
	size time.Duration
	name string
}{
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
}

// formatWait describes d as e.g. "1 hour, 5 minutes and 30 seconds".
// Zero units are left out and anything under a second reads "less than a second".
func formatWait(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Second {
		return "less than a second"
	}

	parts := make([]string, 0, len(waitUnits))

	for _, unit := range waitUnits {
		count := d / unit.size
		d -= count * unit.size

		if count > 0 {
			parts = append(parts, english.Plural(int(count), unit.name, ""))
		}
	}

	return english.WordSeries(parts, "and")
}
