package adapter

import (
	"sync"
	"time"

	"github.com/radieske/prediction-market-engine/internal/oracle"
)

// MetaCache guarda metadados de mercados do venue por um TTL curto, só para
// limitar a taxa de chamadas externas. Nunca responde decisão de resolução:
// resolver sempre exige leitura fresca do venue.
// O relógio é injetado para permitir teste determinístico da expiração.
type MetaCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]metaEntry
}

type metaEntry struct {
	meta     oracle.VenueMarket
	storedAt time.Time
}

// NewMetaCache cria o cache com TTL fixo e relógio injetado
func NewMetaCache(ttl time.Duration, now func() time.Time) *MetaCache {
	if now == nil {
		now = time.Now
	}
	return &MetaCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]metaEntry),
	}
}

// Get retorna a entrada se ainda estiver dentro do TTL
func (c *MetaCache) Get(venueID string) (oracle.VenueMarket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[venueID]
	if !ok {
		return oracle.VenueMarket{}, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, venueID)
		return oracle.VenueMarket{}, false
	}
	return e.meta, true
}

// Put armazena/renova a entrada de um mercado do venue
func (c *MetaCache) Put(venueID string, meta oracle.VenueMarket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[venueID] = metaEntry{meta: meta, storedAt: c.now()}
}
