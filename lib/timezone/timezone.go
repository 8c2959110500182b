package timezone

import (
	"log/slog"
	"os"
	"time"
)

var Location *time.Location

func init() {
	Location = time.Local
	name := os.Getenv("PORTAL_TIMEZONE")
	if name == "" {
		return
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown timezone, falling back to local", "name", name, "err", err)
		return
	}
	Location = loc
}

// all date arithmetic goes through here so that "today" means today
// in the portal's timezone, not wherever the process happens to run
func Now() time.Time {
	return time.Now().In(Location)
}

// Today truncates Now to midnight in the configured location.
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, Location)
}
