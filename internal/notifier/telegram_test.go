package notifier

import (
	"strings"
	"testing"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{50000, "$50000.00"},
		{1.5, "$1.50"},
		{0.1234, "$0.1234"},
		{0.000123, "$0.000123"},
		{0.00001234, "$0.00001234"},
	}
	for _, c := range cases {
		if got := FormatPrice(c.price); got != c.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", c.price, got, c.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	a := model.Alert{
		CoinName:   "Bitcoin",
		CoinSymbol: "BTC",
		Direction:  model.DirectionRise,
		Trigger:    model.TriggerTakeProfit,
		ValueType:  model.ValuePercent,
		Value:      5,
	}
	msg := BuildMessage(a, 52500)
	for _, want := range []string{"Take-profit", "Bitcoin", "BTC", "increased", "5.00%", "$52500.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}

	a.ValueType = model.ValuePrice
	a.Direction = model.DirectionFall
	a.Trigger = model.TriggerStopLoss
	a.Value = 48000
	msg = BuildMessage(a, 47900)
	if !strings.Contains(msg, "Stop-loss") || !strings.Contains(msg, "fell to") {
		t.Errorf("unexpected price-target message: %s", msg)
	}
}
