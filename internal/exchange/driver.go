package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

const (
	reconnectDelay = 5 * time.Second
	dialTimeout    = 10 * time.Second
	readDeadline   = 60 * time.Second
	pingInterval   = 25 * time.Second
	statsInterval  = 5 * time.Second
	writeTimeout   = 5 * time.Second
)

// stats holds per-window drop counters for the periodic connector log.
type stats struct {
	updated       int
	noSymbol      int
	unmapped      int
	untracked     int
	wrongPriority int
	zeroPrice     int
}

func (s *stats) reset() { *s = stats{} }

// Driver runs one exchange connector: connect, subscribe, stream, write
// snapshots for coins whose top price priority is this exchange, reconnect
// on any socket failure with a fixed delay.
type Driver struct {
	adapter Adapter
	reg     *registry.Registry
	store   store.PriceStore

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	conn    *websocket.Conn

	tracked map[string]struct{} // coin IDs tracked by this connector

	statsMu    sync.Mutex
	stats      stats
	lastUpdate map[string]time.Time // coin ID -> last snapshot write
}

func NewDriver(adapter Adapter, reg *registry.Registry, st store.PriceStore) *Driver {
	return &Driver{
		adapter:    adapter,
		reg:        reg,
		store:      st,
		lastUpdate: make(map[string]time.Time),
	}
}

func (d *Driver) Name() string { return d.adapter.Name() }

// Start loads the tracked coin set and launches the stream loop. When no
// enabled coin lists this source, the connector stays stopped.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		log.Warn().Str("feed", d.Name()).Msg("connector already running")
		return
	}

	coins := d.reg.CoinsBySource(d.Name())
	if len(coins) == 0 {
		log.Warn().Str("feed", d.Name()).Msg("no coins mapped to this source, connector not started")
		return
	}

	tracked := make(map[string]struct{}, len(coins))
	symbols := make([]string, 0, len(coins))
	for _, c := range coins {
		tracked[c.ID] = struct{}{}
		symbols = append(symbols, c.ExternalIDs[d.Name()])
	}
	d.tracked = tracked

	log.Info().
		Str("feed", d.Name()).
		Int("coins", len(tracked)).
		Msg("connector starting")

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	go d.run(runCtx, symbols)
}

// Stop is idempotent. It cancels the stream loop, closes the socket and
// waits for the loop to exit, so no store writes happen after it returns.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	done := d.done
	conn := d.conn
	d.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	log.Info().Str("feed", d.Name()).Msg("connector stopped")
}

func (d *Driver) run(ctx context.Context, symbols []string) {
	defer close(d.done)

	wsURL, err := d.adapter.DialURL(symbols)
	if err != nil {
		log.Error().Str("feed", d.Name()).Err(err).Msg("cannot build ws url, connector exiting")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Info().Str("feed", d.Name()).Str("url", wsURL).Msg("ws connecting")
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(dctx, wsURL, nil)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Str("feed", d.Name()).Err(err).Msg("ws dial failed")
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		d.mu.Lock()
		d.conn = conn
		d.mu.Unlock()

		if err := d.adapter.Subscribe(ctx, conn, symbols); err != nil {
			_ = conn.Close()
			log.Error().Str("feed", d.Name()).Err(err).Msg("subscribe failed")
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		log.Info().Str("feed", d.Name()).Msg("ws connected and subscribed")
		err = d.streamLoop(ctx, conn)
		_ = conn.Close()

		d.mu.Lock()
		d.conn = nil
		d.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("feed", d.Name()).Err(err).Msg("ws disconnected, reconnecting")
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (d *Driver) streamLoop(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			d.handleMessage(ctx, conn, msgType, data)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Close the socket and wait for the reader to exit so that
			// no snapshot write is in flight after Stop returns.
			_ = conn.Close()
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
		case <-statsTicker.C:
			d.logStats()
		}
	}
}

func (d *Driver) handleMessage(ctx context.Context, conn *websocket.Conn, msgType int, data []byte) {
	ticks, reply := d.adapter.Parse(msgType, data)
	if reply != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, reply)
	}
	for _, t := range ticks {
		if ctx.Err() != nil {
			return
		}
		d.processTick(ctx, t)
	}
}

// processTick runs the arbitration gate: resolve the native symbol, require
// the coin to be tracked, require this exchange to be the coin's top price
// priority, require a positive price. Anything else is counted and dropped.
func (d *Driver) processTick(ctx context.Context, t model.RawTick) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	if t.Symbol == "" {
		d.stats.noSymbol++
		return
	}
	coin := d.reg.FindByExternalID(d.Name(), t.Symbol)
	if coin == nil {
		d.stats.unmapped++
		return
	}
	if _, ok := d.tracked[coin.ID]; !ok {
		d.stats.untracked++
		return
	}
	if !coin.TopPriority(d.Name()) {
		d.stats.wrongPriority++
		return
	}
	if t.Price <= 0 {
		d.stats.zeroPrice++
		return
	}

	d.store.Set(ctx, coin.ID, t.Snapshot())
	d.stats.updated++
	d.lastUpdate[coin.ID] = time.Now()
}

func (d *Driver) logStats() {
	d.statsMu.Lock()
	s := d.stats
	d.stats.reset()

	cutoff := time.Now().Add(-statsInterval)
	fresh := 0
	for id, ts := range d.lastUpdate {
		if ts.Before(cutoff) {
			delete(d.lastUpdate, id)
			continue
		}
		fresh++
	}
	tracked := len(d.tracked)
	d.statsMu.Unlock()

	log.Info().
		Str("feed", d.Name()).
		Int("updated", s.updated).
		Int("drop_no_symbol", s.noSymbol).
		Int("drop_unmapped", s.unmapped).
		Int("drop_untracked", s.untracked).
		Int("drop_wrong_priority", s.wrongPriority).
		Int("drop_zero_price", s.zeroPrice).
		Int("coins_updating", fresh).
		Int("coins_tracked", tracked).
		Msg("connector stats")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
