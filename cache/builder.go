package cache

import (
	"time"

	"github.com/xiaoma778/mybatis-3/internal/metrics"
)

// Eviction selects the bounded-size policy a namespace's second-level
// cache stack uses, matching the <cache eviction="..."/> DTD attribute
// spec.md §6 lists (LRU, FIFO, SOFT, WEAK).
type Eviction string

const (
	LRUEviction  Eviction = "LRU"
	FIFOEviction Eviction = "FIFO"
	SoftEviction Eviction = "SOFT"
	WeakEviction Eviction = "WEAK"
)

// Config captures one namespace's <cache> element: the DTD attributes
// (type is implied -- this package only builds the default PerpetualCache
// lineage) plus the metrics registry the Logging decorator reports to.
// Equivalent to the subset of org.apache.ibatis.mapping.CacheBuilder's
// fluent setters this port needs, as plain fields instead of a chained
// builder.
type Config struct {
	ID            string
	Eviction      Eviction // "" defaults to LRU, CacheBuilder's own default
	Size          int      // forwarded to the eviction decorator; <=0 uses its own default
	FlushInterval time.Duration
	ReadOnly      bool // false wraps with Serialized (copies required on every read)
	Blocking      bool
	Metrics       *metrics.Registry // nil disables the Logging decorator's counters, not the decorator itself
}

// Build assembles a namespace's L2 decorator stack in the fixed order
// spec.md's cache layer prescribes: the declared eviction policy over a
// fresh base store, then Scheduled if a flush interval is set, then
// Serialized unless the cache is read-only, then Blocking if requested,
// then Synchronized and Logging unconditionally -- every namespace cache
// is shared across sessions and always instrumented. Equivalent to
// CacheBuilder.build(), minus the XML-driven <property> setter step that
// belongs to the parser this module treats as an external collaborator.
func Build(cfg Config) Cache {
	var c Cache
	switch cfg.Eviction {
	case FIFOEviction:
		c = NewFIFO(cfg.ID, NewPerpetual(cfg.ID), cfg.Size)
	case SoftEviction:
		c = NewSoft(cfg.ID, NewPerpetual(cfg.ID), cfg.Size)
	case WeakEviction:
		c = NewWeak(cfg.ID, NewPerpetual(cfg.ID))
	default:
		c = NewLRU(cfg.ID, cfg.Size)
	}

	if cfg.FlushInterval > 0 {
		c = NewScheduled(cfg.ID, c, cfg.FlushInterval)
	}
	if !cfg.ReadOnly {
		c = NewSerialized(cfg.ID, c)
	}
	if cfg.Blocking {
		c = NewBlocking(cfg.ID, c)
	}
	c = NewSynchronized(cfg.ID, c)
	c = NewLogging(cfg.ID, c, cfg.Metrics)
	return c
}
