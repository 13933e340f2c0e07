package model

import "time"

// User owns alerts and an optional do-not-disturb window.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LanguageCode string
	IsActive     bool

	// DND start/end are wall-clock UTC minutes-of-day; nil means no window.
	DNDStart *DayTime
	DNDEnd   *DayTime

	CreatedAt time.Time
}

// DayTime is a wall-clock time of day ("HH:MM"), timezone-free.
type DayTime struct {
	Hour   int
	Minute int
}

func (d DayTime) Minutes() int { return d.Hour*60 + d.Minute }

// DNDActive reports whether now (UTC wall clock) falls inside the user's
// do-not-disturb window. A window whose start is not before its end wraps
// midnight.
func (u *User) DNDActive(now time.Time) bool {
	if u == nil || u.DNDStart == nil || u.DNDEnd == nil {
		return false
	}
	cur := now.UTC().Hour()*60 + now.UTC().Minute()
	start := u.DNDStart.Minutes()
	end := u.DNDEnd.Minutes()

	if start < end {
		return start <= cur && cur <= end
	}
	return cur >= start || cur <= end
}
