package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Registry holds the coin table loaded from the coins document. Reads are
// served from an in-memory table that is atomically replaced on reload; a
// reload is triggered lazily when the document's content hash changes.
type Registry struct {
	path string

	mu         sync.RWMutex
	coins      map[string]*model.Coin
	order      []string          // coin IDs in document order
	byExternal map[string]string // source + "\x00" + externalID -> coin ID
	lastMtime  time.Time
	hash       string
}

type coinDoc struct {
	ID            string            `toml:"id" json:"id"`
	Name          string            `toml:"name" json:"name"`
	Symbol        string            `toml:"symbol" json:"symbol"`
	Enabled       *bool             `toml:"enabled" json:"enabled"`
	ExternalIDs   map[string]string `toml:"external_ids" json:"external_ids"`
	PricePriority []string          `toml:"price_priority" json:"price_priority"`
}

type coinsFile struct {
	Coins []coinDoc `toml:"coins" json:"coins"`
}

// New creates a registry bound to the coins document at path and attempts an
// initial load. A missing or invalid document leaves the registry empty;
// lookups then report "not found" rather than erroring.
func New(path string) *Registry {
	r := &Registry{
		path:       path,
		coins:      make(map[string]*model.Coin),
		byExternal: make(map[string]string),
	}
	if err := r.Load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("coins config not loaded, registry starts empty")
	}
	return r
}

// Load parses the coins document and atomically replaces the in-memory
// table. On parse failure the previous state is retained.
func (r *Registry) Load() error {
	doc, hash, mtime, err := r.parse()
	if err != nil {
		return err
	}
	r.publish(doc, hash, mtime)
	return nil
}

func (r *Registry) parse() (*coinsFile, string, time.Time, error) {
	fi, err := os.Stat(r.path)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	var doc coinsFile
	if _, err := toml.DecodeFile(r.path, &doc); err != nil {
		return nil, "", time.Time{}, err
	}

	// Hash the canonicalized document, not the raw bytes, so that
	// formatting-only edits do not count as changes.
	canon, err := json.Marshal(doc)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	sum := sha256.Sum256(canon)
	return &doc, hex.EncodeToString(sum[:]), fi.ModTime(), nil
}

func (r *Registry) publish(doc *coinsFile, hash string, mtime time.Time) {
	coins := make(map[string]*model.Coin, len(doc.Coins))
	order := make([]string, 0, len(doc.Coins))
	byExternal := make(map[string]string)

	for _, cd := range doc.Coins {
		id := strings.TrimSpace(cd.ID)
		if id == "" {
			continue
		}
		enabled := true
		if cd.Enabled != nil {
			enabled = *cd.Enabled
		}
		c := &model.Coin{
			ID:            id,
			Name:          cd.Name,
			Symbol:        cd.Symbol,
			Enabled:       enabled,
			ExternalIDs:   cd.ExternalIDs,
			PricePriority: cd.PricePriority,
		}
		if c.ExternalIDs == nil {
			c.ExternalIDs = map[string]string{}
		}
		coins[id] = c
		order = append(order, id)
		for source, ext := range c.ExternalIDs {
			byExternal[externalKey(source, ext)] = id
		}
	}

	r.mu.Lock()
	changed := r.hash != hash
	r.coins = coins
	r.order = order
	r.byExternal = byExternal
	r.hash = hash
	r.lastMtime = mtime
	r.mu.Unlock()

	if changed {
		log.Info().Int("coins", len(order)).Str("hash", hash[:12]).Msg("coins config loaded")
	}
}

// checkReload re-reads the document when its mtime moved and its content
// hash actually changed. Called lazily from CoinIDs; connectors and lookups
// stay on the already published table.
func (r *Registry) checkReload() {
	fi, err := os.Stat(r.path)
	if err != nil {
		return
	}

	r.mu.RLock()
	sameMtime := !fi.ModTime().After(r.lastMtime)
	prevHash := r.hash
	r.mu.RUnlock()
	if sameMtime {
		return
	}

	doc, hash, mtime, err := r.parse()
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("coins config reload failed, keeping previous state")
		return
	}
	if hash == prevHash {
		// touched but unchanged
		r.mu.Lock()
		r.lastMtime = mtime
		r.mu.Unlock()
		return
	}
	r.publish(doc, hash, mtime)
}

// CoinIDs returns coin IDs in document order, optionally filtered to enabled
// coins. It re-checks the document for changes before answering.
func (r *Registry) CoinIDs(enabledOnly bool) []string {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if enabledOnly {
			if c := r.coins[id]; c == nil || !c.Enabled {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

func (r *Registry) Coin(id string) *model.Coin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coins[id]
}

// FindByExternalID resolves a source-native symbol to a coin through the
// reverse index rebuilt on every load. Hot path: one map lookup per tick.
func (r *Registry) FindByExternalID(source, externalID string) *model.Coin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExternal[externalKey(source, externalID)]
	if !ok {
		return nil
	}
	return r.coins[id]
}

func (r *Registry) FindBySymbol(symbol string, enabledOnly bool) *model.Coin {
	upper := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		c := r.coins[id]
		if c == nil || (enabledOnly && !c.Enabled) {
			continue
		}
		if strings.ToUpper(c.Symbol) == upper {
			return c
		}
	}
	return nil
}

// PricePriority returns the ordered source names for a coin, empty when the
// coin is unknown.
func (r *Registry) PricePriority(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.coins[id]
	if c == nil {
		return nil
	}
	out := make([]string, len(c.PricePriority))
	copy(out, c.PricePriority)
	return out
}

// CoinsBySource returns the enabled coins that list source in their external
// IDs, in document order.
func (r *Registry) CoinsBySource(source string) []*model.Coin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Coin
	for _, id := range r.order {
		c := r.coins[id]
		if c == nil || !c.Enabled {
			continue
		}
		if _, ok := c.ExternalIDs[source]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Hash returns the content hash of the currently published document.
func (r *Registry) Hash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hash
}

func externalKey(source, externalID string) string {
	return source + "\x00" + externalID
}
