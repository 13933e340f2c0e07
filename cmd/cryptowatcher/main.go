package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/aggregator"
	"github.com/Pandusss/cryptowatcher-sub000/internal/alertstore"
	"github.com/Pandusss/cryptowatcher-sub000/internal/config"
	"github.com/Pandusss/cryptowatcher-sub000/internal/evaluator"
	"github.com/Pandusss/cryptowatcher-sub000/internal/exchange"
	"github.com/Pandusss/cryptowatcher-sub000/internal/logger"
	"github.com/Pandusss/cryptowatcher-sub000/internal/notifier"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/staticdata"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

func main() {
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// cache backend: redis when reachable, in-process otherwise
	var (
		priceStore  store.PriceStore
		chartCache  store.ChartCache
		staticCache store.StaticCache
	)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, using in-process cache")
		mem := store.NewMemory(cfg.PriceTTL(), cfg.ChartTTL())
		priceStore, chartCache, staticCache = mem, mem, mem
	} else {
		r := store.NewRedis(rdb, cfg.PriceTTL(), cfg.ChartTTL())
		priceStore, chartCache, staticCache = r, r, r
	}

	reg := registry.New(cfg.App.CoinsPath)
	if len(reg.CoinIDs(false)) == 0 {
		log.Warn().Str("path", cfg.App.CoinsPath).Msg("coin registry empty at startup")
	}

	var repo alertstore.Repository
	switch cfg.Database.Driver {
	case "postgres":
		repo, err = alertstore.NewPostgres(cfg.Database.PostgresDSN)
	default:
		repo, err = alertstore.NewSQLite(cfg.Database.SQLitePath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("alert store init failed")
	}
	defer repo.Close()

	// streaming connectors
	var drivers []*exchange.Driver
	if cfg.Exchange.Binance.Enabled {
		drivers = append(drivers, exchange.NewDriver(exchange.NewBinance(cfg.Exchange.Binance.WsURL), reg, priceStore))
	} else {
		log.Warn().Msg("binance disabled by config")
	}
	if cfg.Exchange.OKX.Enabled {
		drivers = append(drivers, exchange.NewDriver(exchange.NewOKX(cfg.Exchange.OKX.WsURL), reg, priceStore))
	} else {
		log.Warn().Msg("okx disabled by config")
	}
	if cfg.Exchange.MEXC.Enabled {
		drivers = append(drivers, exchange.NewDriver(exchange.NewMEXC(cfg.Exchange.MEXC.WsURL), reg, priceStore))
	} else {
		log.Warn().Msg("mexc disabled by config")
	}
	if len(drivers) == 0 {
		log.Fatal().Msg("no exchange connectors enabled")
	}
	for _, d := range drivers {
		d.Start(ctx)
	}

	// chart providers mirror the connector set, same preference order
	var charts []aggregator.ChartProvider
	if cfg.Exchange.Binance.Enabled && cfg.Exchange.Binance.RestURL != "" {
		charts = append(charts, aggregator.NewBinanceChart(cfg.Exchange.Binance.RestURL, reg))
	}
	if cfg.Exchange.OKX.Enabled && cfg.Exchange.OKX.RestURL != "" {
		charts = append(charts, aggregator.NewOKXChart(cfg.Exchange.OKX.RestURL, reg))
	}
	if cfg.Exchange.MEXC.Enabled && cfg.Exchange.MEXC.RestURL != "" {
		charts = append(charts, aggregator.NewMEXCChart(cfg.Exchange.MEXC.RestURL, reg))
	}
	router := aggregator.NewRouter(reg, priceStore, chartCache, charts...)

	// warm descriptive data in the background; prices never wait on this
	static := staticdata.NewService(reg, staticCache, cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey)
	go func() {
		warmed := static.StaticBatch(ctx, reg.CoinIDs(true))
		n := 0
		for _, v := range warmed {
			if v != nil {
				n++
			}
		}
		log.Info().Int("coins", n).Msg("static data warmed")
	}()

	checker := evaluator.NewChecker(repo, router, notifier.NewTelegram(cfg.Telegram.BotToken), cfg.SweepInterval())
	checker.Start(ctx)

	log.Info().
		Str("config", *configPath).
		Str("db", cfg.Database.Driver).
		Int("connectors", len(drivers)).
		Int("chart_providers", len(charts)).
		Int("coins", len(reg.CoinIDs(true))).
		Msg("cryptowatcher started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	checker.Stop()
	for _, d := range drivers {
		d.Stop()
	}
}
