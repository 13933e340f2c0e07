package staticdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

const sourceCoinGecko = "coingecko"

// Service resolves descriptive coin data (name, symbol, icon URL) from the
// CoinGecko REST API, caching results so that repeated lookups cost nothing.
// Prices never come from here.
type Service struct {
	reg     *registry.Registry
	cache   store.StaticCache
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewService(reg *registry.Registry, cache store.StaticCache, baseURL, apiKey string) *Service {
	return &Service{
		reg:     reg,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Static returns the static data for one coin, or nil when the coin is
// unknown, has no CoinGecko mapping, or the upstream call fails.
func (s *Service) Static(ctx context.Context, coinID string) *model.CoinStatic {
	if cached := s.cache.GetStatic(ctx, coinID); cached != nil {
		return cached
	}

	coin := s.reg.Coin(coinID)
	if coin == nil {
		return nil
	}
	geckoID := coin.ExternalID(sourceCoinGecko)
	if geckoID == "" {
		return nil
	}

	var resp struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Image  struct {
			Large string `json:"large"`
			Small string `json:"small"`
		} `json:"image"`
	}
	q := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"false"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	if err := s.get(ctx, "/coins/"+url.PathEscape(geckoID), q, &resp); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("static data fetch failed")
		return nil
	}

	imageURL := resp.Image.Large
	if imageURL == "" {
		imageURL = resp.Image.Small
	}
	data := model.CoinStatic{
		ID:       coinID,
		Name:     resp.Name,
		Symbol:   strings.ToUpper(resp.Symbol),
		Slug:     coinID,
		ImageURL: imageURL,
	}
	s.cache.SetStatic(ctx, coinID, data)
	if imageURL != "" {
		s.cache.SetImageURL(ctx, coinID, imageURL)
	}
	return &data
}

// StaticBatch resolves static data for many coins at once. Cached coins are
// served locally; the rest go out in a single /coins/markets request. Coins
// that cannot be resolved map to nil.
func (s *Service) StaticBatch(ctx context.Context, coinIDs []string) map[string]*model.CoinStatic {
	result := make(map[string]*model.CoinStatic, len(coinIDs))
	if len(coinIDs) == 0 {
		return result
	}

	var geckoIDs []string
	geckoToInternal := make(map[string]string)
	for _, coinID := range coinIDs {
		if cached := s.cache.GetStatic(ctx, coinID); cached != nil {
			result[coinID] = cached
			continue
		}
		result[coinID] = nil
		coin := s.reg.Coin(coinID)
		if coin == nil {
			continue
		}
		geckoID := coin.ExternalID(sourceCoinGecko)
		if geckoID == "" {
			continue
		}
		geckoIDs = append(geckoIDs, geckoID)
		geckoToInternal[geckoID] = coinID
	}
	if len(geckoIDs) == 0 {
		return result
	}

	var rows []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Image  string `json:"image"`
	}
	q := url.Values{
		"vs_currency": {"usd"},
		"ids":         {strings.Join(geckoIDs, ",")},
		"order":       {"market_cap_desc"},
		"per_page":    {fmt.Sprint(len(geckoIDs))},
		"sparkline":   {"false"},
	}
	if err := s.get(ctx, "/coins/markets", q, &rows); err != nil {
		log.Error().Err(err).Int("coins", len(geckoIDs)).Msg("batch static data fetch failed")
		return result
	}

	for _, row := range rows {
		coinID, ok := geckoToInternal[row.ID]
		if !ok {
			continue
		}
		data := model.CoinStatic{
			ID:       coinID,
			Name:     row.Name,
			Symbol:   strings.ToUpper(row.Symbol),
			Slug:     coinID,
			ImageURL: row.Image,
		}
		result[coinID] = &data
		s.cache.SetStatic(ctx, coinID, data)
		if row.Image != "" {
			s.cache.SetImageURL(ctx, coinID, row.Image)
		}
	}
	return result
}

// ImageURL returns the coin's icon URL, from the long-lived image cache when
// possible.
func (s *Service) ImageURL(ctx context.Context, coinID string) string {
	if u := s.cache.GetImageURL(ctx, coinID); u != "" {
		return u
	}
	if data := s.Static(ctx, coinID); data != nil {
		return data.ImageURL
	}
	return ""
}

func (s *Service) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
