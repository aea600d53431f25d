package contest

import (
	"strconv"
	"time"
)

// DisplayTimeZone is the IANA zone all user-facing times are rendered in.
const DisplayTimeZone = "Asia/Kolkata"

// IST is the display location. Falls back to a fixed +05:30 zone when the
// host has no tzdata.
var IST = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation(DisplayTimeZone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// ToIST converts t to the display location.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// FormatIST renders t as "2006-01-02 15:04 IST" whatever its own offset.
func FormatIST(t time.Time) string {
	return ToIST(t).Format("2006-01-02 15:04") + " IST"
}

// FormatDuration renders a contest length in hours with one decimal,
// e.g. "2.5 hours".
func FormatDuration(seconds int64) string {
	return strconv.FormatFloat(float64(seconds)/3600, 'f', 1, 64) + " hours"
}
