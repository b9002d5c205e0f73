package lookup

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var filetimeEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

const filetimeTicksPerSecond = 10000000

// FormatFiletime renders a user-data time value, a Windows FILETIME written
// as "high low" decimal words, as "2006/01/02 at 15:04:05" UTC. Empty and
// zero values render as "(never)".
func FormatFiletime(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "(never)"
	}

	high, _ := strconv.ParseUint(fields[0], 10, 32)
	var low uint64
	if len(fields) > 1 {
		low, _ = strconv.ParseUint(fields[1], 10, 32)
	}

	ticks := high<<32 | low
	if ticks == 0 {
		return "(never)"
	}

	secs := ticks / filetimeTicksPerSecond
	t := filetimeEpoch.AddDate(0, 0, int(secs/86400)).Add(time.Duration(secs%86400) * time.Second)
	return t.Format("2006/01/02 at 15:04:05")
}

// FormatDuration renders a count of seconds as "N days, HH:MM:SS". Empty
// and zero values render as "now".
func FormatDuration(value string) string {
	secs, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil || secs == 0 {
		return "now"
	}

	days := secs / 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600%24, secs/60%60, secs%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
