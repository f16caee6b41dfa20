package helpers

import (
	"strconv"
	"time"
)

// GetTimeFromSnowflake extracts the creation time of a discord ID
func GetTimeFromSnowflake(id string) time.Time {
	iid, err := strconv.ParseInt(id, 10, 64)
	Relax(err)

	return time.Unix(((iid>>22)+1420070400000)/1000, 0).UTC()
}

// HumanizeDuration renders a duration as 1d2h3m4s
func HumanizeDuration(d time.Duration) (result string) {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) - (hours * 60)
	seconds := int(d.Seconds()) - (minutes * 60) - (hours * 60 * 60)

	if hours > 0 {
		days := hours / 24
		hoursLeft := hours % 24
		if days > 0 {
			result += strconv.Itoa(days) + "d"
		}
		if hoursLeft > 0 {
			result += strconv.Itoa(hoursLeft) + "h"
		}
	}
	if minutes > 0 {
		result += strconv.Itoa(minutes) + "m"
	}
	if seconds > 0 {
		result += strconv.Itoa(seconds) + "s"
	}
	return result
}
