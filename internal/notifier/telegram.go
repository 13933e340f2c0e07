package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

const telegramBaseURL = "https://api.telegram.org/bot"

// Telegram sends alert messages through the Bot API. A user ID doubles as
// the Telegram chat ID.
type Telegram struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		token:   token,
		baseURL: telegramBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageReq struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (t *Telegram) Send(ctx context.Context, userID int64, alert model.Alert, currentPrice float64) bool {
	if t.token == "" {
		log.Error().Msg("telegram bot token not configured, alert not sent")
		return false
	}

	body, _ := json.Marshal(sendMessageReq{
		ChatID:                userID,
		Text:                  BuildMessage(alert, currentPrice),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+t.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("telegram request build failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("telegram send failed")
		return false
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("telegram response unreadable")
		return false
	}
	if !result.OK {
		log.Error().Int64("user", userID).Str("description", result.Description).Msg("telegram rejected message")
		return false
	}
	return true
}

// FormatPrice renders a price with magnitude-appropriate precision.
func FormatPrice(price float64) string {
	return "$" + strconv.FormatFloat(price, 'f', model.PriceDecimals(price), 64)
}

// BuildMessage renders the alert text sent to the user.
func BuildMessage(a model.Alert, currentPrice float64) string {
	var header string
	switch a.Trigger {
	case model.TriggerStopLoss:
		header = "🔴 Stop-loss"
	case model.TriggerTakeProfit:
		header = "🟢 Take-profit"
	default:
		header = "🔔 Alert"
	}

	var change string
	switch a.ValueType {
	case model.ValuePrice:
		switch a.Direction {
		case model.DirectionRise:
			change = fmt.Sprintf("rose to <b>%s</b>", FormatPrice(a.Value))
		case model.DirectionFall:
			change = fmt.Sprintf("fell to <b>%s</b>", FormatPrice(a.Value))
		default:
			change = fmt.Sprintf("reached <b>%s</b>", FormatPrice(a.Value))
		}
	case model.ValuePercent:
		change = fmt.Sprintf("%s by <b>%.2f%%</b>", directionWord(a.Direction), a.Value)
	default:
		change = fmt.Sprintf("%s by <b>%s</b>", directionWord(a.Direction), FormatPrice(a.Value))
	}

	return fmt.Sprintf("%s: <b>%s</b> (%s) %s\nCurrent price: <b>%s</b>",
		header, a.CoinName, a.CoinSymbol, change, FormatPrice(currentPrice))
}

func directionWord(d model.Direction) string {
	switch d {
	case model.DirectionRise:
		return "increased"
	case model.DirectionFall:
		return "decreased"
	default:
		return "changed"
	}
}

var _ Notifier = (*Telegram)(nil)
