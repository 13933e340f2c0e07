package model

import (
	"testing"
	"time"
)

func TestConditionPriceTarget(t *testing.T) {
	cases := []struct {
		name      string
		direction Direction
		value     float64
		price     float64
		want      bool
	}{
		{"rise below target", DirectionRise, 100, 99.5, false},
		{"rise at target", DirectionRise, 100, 100, true},
		{"rise above target", DirectionRise, 100, 105, true},
		{"fall above target", DirectionFall, 100, 101, false},
		{"fall at target", DirectionFall, 100, 100, true},
		{"both near target", DirectionBoth, 100, 100.005, true},
		{"both off target", DirectionBoth, 100, 100.02, false},
	}

	for _, c := range cases {
		a := &Alert{Direction: c.direction, ValueType: ValuePrice, Value: c.value}
		if got := a.ConditionMet(c.price); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestConditionPercent(t *testing.T) {
	cases := []struct {
		name      string
		direction Direction
		value     float64
		price     float64
		want      bool
	}{
		{"rise not reached", DirectionRise, 5, 104, false},
		{"rise reached", DirectionRise, 5, 105, true},
		{"rise ignores drop", DirectionRise, 5, 90, false},
		{"fall reached", DirectionFall, 5, 95, true},
		{"fall requires drop", DirectionFall, 5, 110, false},
		{"both up", DirectionBoth, 5, 106, true},
		{"both down", DirectionBoth, 5, 94, true},
		{"both small move", DirectionBoth, 5, 102, false},
	}

	for _, c := range cases {
		a := &Alert{
			Direction:      c.direction,
			ValueType:      ValuePercent,
			Value:          c.value,
			ReferencePrice: 100,
		}
		if got := a.ConditionMet(c.price); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestConditionAbsolute(t *testing.T) {
	a := &Alert{Direction: DirectionFall, ValueType: ValueAbsolute, Value: 10, ReferencePrice: 100}
	if a.ConditionMet(95) {
		t.Error("drop of 5 should not satisfy absolute value 10")
	}
	if !a.ConditionMet(89) {
		t.Error("drop of 11 should satisfy absolute value 10")
	}
	if a.ConditionMet(111) {
		t.Error("fall direction must not trigger on a rise")
	}
}

func TestAlertExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hours := 1

	a := &Alert{CreatedAt: now.Add(-2 * time.Hour), ExpireHours: &hours}
	if !a.Expired(now) {
		t.Error("alert created 2h ago with 1h expiry should be expired")
	}

	a = &Alert{CreatedAt: now.Add(-30 * time.Minute), ExpireHours: &hours}
	if a.Expired(now) {
		t.Error("alert created 30m ago with 1h expiry should not be expired")
	}

	a = &Alert{CreatedAt: now.Add(-1000 * time.Hour)}
	if a.Expired(now) {
		t.Error("alert without expiry must never expire")
	}
}

func TestDNDWindow(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
	}

	u := &User{
		DNDStart: &DayTime{Hour: 9, Minute: 0},
		DNDEnd:   &DayTime{Hour: 17, Minute: 0},
	}
	if !u.DNDActive(at(12, 0)) {
		t.Error("12:00 should be inside 09:00-17:00")
	}
	if u.DNDActive(at(8, 59)) {
		t.Error("08:59 should be outside 09:00-17:00")
	}

	// wraps midnight
	u = &User{
		DNDStart: &DayTime{Hour: 22, Minute: 0},
		DNDEnd:   &DayTime{Hour: 7, Minute: 0},
	}
	if !u.DNDActive(at(23, 30)) {
		t.Error("23:30 should be inside 22:00-07:00")
	}
	if !u.DNDActive(at(6, 0)) {
		t.Error("06:00 should be inside 22:00-07:00")
	}
	if u.DNDActive(at(12, 0)) {
		t.Error("12:00 should be outside 22:00-07:00")
	}

	if (&User{}).DNDActive(at(12, 0)) {
		t.Error("user without a window is never in DND")
	}
}
