package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Redis is the production PriceStore: one JSON value per coin with a fresh
// TTL on every write, batch reads pipelined into one round trip.
type Redis struct {
	rdb      *redis.Client
	ttl      time.Duration
	chartTTL time.Duration
}

func NewRedis(rdb *redis.Client, ttl, chartTTL time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, chartTTL: chartTTL}
}

func (r *Redis) Set(ctx context.Context, coinID string, snap model.PriceSnapshot) {
	b, _ := json.Marshal(snap)
	if err := r.rdb.Set(ctx, priceKey(coinID), b, r.ttl).Err(); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("price cache write failed")
	}
}

func (r *Redis) Get(ctx context.Context, coinID string) *model.PriceSnapshot {
	b, err := r.rdb.Get(ctx, priceKey(coinID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Str("coin", coinID).Msg("price cache read failed")
		}
		return nil
	}
	var snap model.PriceSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("price cache entry corrupt")
		return nil
	}
	return &snap
}

func (r *Redis) GetMany(ctx context.Context, coinIDs []string) map[string]model.PriceSnapshot {
	out := make(map[string]model.PriceSnapshot, len(coinIDs))
	if len(coinIDs) == 0 {
		return out
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(coinIDs))
	for i, id := range coinIDs {
		cmds[i] = pipe.Get(ctx, priceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Error().Err(err).Int("coins", len(coinIDs)).Msg("price cache batch read failed")
	}

	for i, cmd := range cmds {
		b, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var snap model.PriceSnapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			continue
		}
		out[coinIDs[i]] = snap
	}
	return out
}

func (r *Redis) GetChart(ctx context.Context, coinID, period string) []model.ChartPoint {
	b, err := r.rdb.Get(ctx, chartKey(coinID, period)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Str("coin", coinID).Msg("chart cache read failed")
		}
		return nil
	}
	var points []model.ChartPoint
	if err := json.Unmarshal(b, &points); err != nil {
		return nil
	}
	return points
}

func (r *Redis) SetChart(ctx context.Context, coinID, period string, points []model.ChartPoint) {
	b, _ := json.Marshal(points)
	if err := r.rdb.Set(ctx, chartKey(coinID, period), b, r.chartTTL).Err(); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("chart cache write failed")
	}
}

func (r *Redis) GetStatic(ctx context.Context, coinID string) *model.CoinStatic {
	b, err := r.rdb.Get(ctx, staticKey(coinID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Str("coin", coinID).Msg("static cache read failed")
		}
		return nil
	}
	var data model.CoinStatic
	if err := json.Unmarshal(b, &data); err != nil {
		return nil
	}
	return &data
}

func (r *Redis) SetStatic(ctx context.Context, coinID string, data model.CoinStatic) {
	b, _ := json.Marshal(data)
	if err := r.rdb.Set(ctx, staticKey(coinID), b, staticTTL).Err(); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("static cache write failed")
	}
}

func (r *Redis) GetImageURL(ctx context.Context, coinID string) string {
	s, err := r.rdb.Get(ctx, imageKey(coinID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Str("coin", coinID).Msg("image cache read failed")
		}
		return ""
	}
	return s
}

func (r *Redis) SetImageURL(ctx context.Context, coinID, url string) {
	if err := r.rdb.Set(ctx, imageKey(coinID), url, imageTTL).Err(); err != nil {
		log.Error().Err(err).Str("coin", coinID).Msg("image cache write failed")
	}
}

var (
	_ PriceStore  = (*Redis)(nil)
	_ ChartCache  = (*Redis)(nil)
	_ StaticCache = (*Redis)(nil)
)
