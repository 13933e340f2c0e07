package model

import (
	"math"
	"time"
)

type Direction string

const (
	DirectionRise Direction = "rise"
	DirectionFall Direction = "fall"
	DirectionBoth Direction = "both"
)

type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "stop-loss"
	TriggerTakeProfit TriggerKind = "take-profit"
)

type ValueType string

const (
	ValuePercent  ValueType = "percent"
	ValueAbsolute ValueType = "absolute"
	ValuePrice    ValueType = "price"
)

// PriceEpsilon absorbs float noise when matching an exact price target.
const PriceEpsilon = 0.01

// Alert is a user's standing price-watch condition. It fires at most once:
// once TriggeredAt is set IsActive stays false forever.
type Alert struct {
	ID     string
	UserID int64

	CoinID     string
	CoinSymbol string
	CoinName   string

	Direction Direction
	Trigger   TriggerKind
	ValueType ValueType
	Value     float64

	// ReferencePrice is the coin price captured when the alert was created;
	// percent and absolute conditions are measured against it.
	ReferencePrice float64

	IsActive    bool
	ExpireHours *int

	CreatedAt   time.Time
	TriggeredAt *time.Time
}

// Expired reports whether the alert outlived its optional expiry window.
func (a *Alert) Expired(now time.Time) bool {
	if a.ExpireHours == nil {
		return false
	}
	return !now.Before(a.CreatedAt.Add(time.Duration(*a.ExpireHours) * time.Hour))
}

// ConditionMet evaluates the alert condition against the current price.
//
// The fall leg for percent/absolute additionally requires the price to sit
// below the reference, while both checks magnitude regardless of sign; this
// asymmetry is intentional.
func (a *Alert) ConditionMet(price float64) bool {
	if a.ValueType == ValuePrice {
		switch a.Direction {
		case DirectionRise:
			return price >= a.Value
		case DirectionFall:
			return price <= a.Value
		default:
			return math.Abs(price-a.Value) < PriceEpsilon
		}
	}

	change := price - a.ReferencePrice

	switch a.Direction {
	case DirectionRise:
		if a.ValueType == ValuePercent {
			return change/a.ReferencePrice*100 >= a.Value
		}
		return change >= a.Value
	case DirectionFall:
		if a.ValueType == ValuePercent {
			return math.Abs(change/a.ReferencePrice*100) >= a.Value && change < 0
		}
		return math.Abs(change) >= a.Value && change < 0
	default:
		if a.ValueType == ValuePercent {
			return math.Abs(change/a.ReferencePrice*100) >= a.Value
		}
		return math.Abs(change) >= a.Value
	}
}
