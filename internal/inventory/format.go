package inventory

import (
	"time"

	"github.com/stockypocky/stockyweb/internal/model"
)

const displayLayout = "2006/01/02 15:04:05"

// FormatTimestamp renders an ISO timestamp as YYYY/MM/DD HH:mm:ss in loc.
// Empty or unparseable input yields "".
func FormatTimestamp(iso string, loc *time.Location) string {
	t, err := model.ParseTimestamp(iso)
	if err != nil {
		return ""
	}
	return FormatTime(t, loc)
}

// FormatTime renders t like FormatTimestamp. The zero time yields "".
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(displayLayout)
}
