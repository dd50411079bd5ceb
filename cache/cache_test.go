package cache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xiaoma778/mybatis-3/internal/metrics"
)

func key(parts ...any) *Key {
	k := NewKey()
	k.UpdateAll(parts...)
	return k
}

func TestKey_EqualForSameComponentsInOrder(t *testing.T) {
	a := key("Widgets.FindByID", "SELECT * FROM widgets WHERE id = ?", int64(1))
	b := key("Widgets.FindByID", "SELECT * FROM widgets WHERE id = ?", int64(1))
	if !a.Equal(b) {
		t.Fatal("expected keys built from identical components to be equal")
	}
	if a.String() != b.String() {
		t.Fatalf("expected equal keys to render identical strings, got %q and %q", a.String(), b.String())
	}
}

func TestKey_NotEqualForDifferentParameters(t *testing.T) {
	a := key("Widgets.FindByID", int64(1))
	b := key("Widgets.FindByID", int64(2))
	if a.Equal(b) {
		t.Fatal("expected keys built from different parameters to be unequal")
	}
}

func TestKey_NotEqualToNil(t *testing.T) {
	a := key("Widgets.FindByID", int64(1))
	if a.Equal(nil) {
		t.Fatal("expected a key never to equal nil")
	}
}

func TestPerpetual_PutGetRemoveClear(t *testing.T) {
	c := NewPerpetual("Widgets")
	k := key("id", int64(1))

	if _, ok := c.Get(k); ok {
		t.Fatal("expected a miss before any Put")
	}
	c.Put(k, "sprocket")
	if v, ok := c.Get(k); !ok || v != "sprocket" {
		t.Fatalf("expected a hit of %q, got %v, %v", "sprocket", v, ok)
	}
	c.Remove(k)
	if _, ok := c.Get(k); ok {
		t.Fatal("expected a miss after Remove")
	}

	c.Put(k, "sprocket")
	c.Clear()
	if _, ok := c.Get(k); ok {
		t.Fatal("expected a miss after Clear")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU("Widgets", 2)
	k1, k2, k3 := key(1), key(2), key(3)

	c.Put(k1, "a")
	c.Put(k2, "b")
	c.Get(k1) // touch k1 so k2 becomes the least-recently-used entry
	c.Put(k3, "c")

	if _, ok := c.Get(k2); ok {
		t.Fatal("expected k2 to have been evicted as least recently used")
	}
	if v, ok := c.Get(k1); !ok || v != "a" {
		t.Fatal("expected k1 to survive since it was touched")
	}
	if v, ok := c.Get(k3); !ok || v != "c" {
		t.Fatal("expected k3 to be present as the most recent insert")
	}
}

func TestFIFO_EvictsOldestInsertRegardlessOfAccess(t *testing.T) {
	c := NewFIFO("Widgets", NewPerpetual("Widgets"), 2)
	k1, k2, k3 := key(1), key(2), key(3)

	c.Put(k1, "a")
	c.Put(k2, "b")
	c.Get(k1) // FIFO ignores access order, unlike LRU
	c.Put(k3, "c")

	if _, ok := c.Get(k1); ok {
		t.Fatal("expected k1 to have been evicted as the oldest insert despite being touched")
	}
	if _, ok := c.Get(k2); !ok {
		t.Fatal("expected k2 to survive")
	}
	if _, ok := c.Get(k3); !ok {
		t.Fatal("expected k3 to survive")
	}
}

func TestSynchronized_DelegatesAllOperations(t *testing.T) {
	c := NewSynchronized("Widgets", NewPerpetual("Widgets"))
	k := key(1)
	c.Put(k, "a")
	if v, ok := c.Get(k); !ok || v != "a" {
		t.Fatal("expected Synchronized to delegate Put/Get")
	}
	c.Remove(k)
	if _, ok := c.Get(k); ok {
		t.Fatal("expected Synchronized to delegate Remove")
	}
	c.Put(k, "a")
	c.Clear()
	if _, ok := c.Get(k); ok {
		t.Fatal("expected Synchronized to delegate Clear")
	}
}

func TestSoft_RetainsWindowThenEvictsFromDelegate(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	c := NewSoft("Widgets", delegate, 1)
	k1, k2 := key(1), key(2)

	c.Put(k1, "a")
	c.Put(k2, "b")

	if _, ok := c.Get(k1); !ok {
		t.Fatal("expected k1 to still be a hit before its window overflows")
	}
	// k1 is now the sole hard-linked entry (capacity 1); accessing k2
	// pushes k1 out of the retention window and evicts it from delegate.
	if _, ok := c.Get(k2); !ok {
		t.Fatal("expected k2 to be a hit")
	}
	if _, ok := delegate.Get(k1); ok {
		t.Fatal("expected k1 to have been evicted from the delegate once its retention window overflowed")
	}
}

func TestWeak_EvictsImmediatelyAfterHit(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	c := NewWeak("Widgets", delegate)
	k := key(1)

	c.Put(k, "a")
	if v, ok := c.Get(k); !ok || v != "a" {
		t.Fatal("expected the first Get to hit")
	}
	if _, ok := c.Get(k); ok {
		t.Fatal("expected the entry to be gone after the hit that returned it")
	}
}

func TestSerialized_RoundTripsThroughGob(t *testing.T) {
	c := NewSerialized("Widgets", NewPerpetual("Widgets"))
	k := key(1)
	c.Put(k, "sprocket")
	v, ok := c.Get(k)
	if !ok || v != "sprocket" {
		t.Fatalf("expected a round-tripped hit of %q, got %v, %v", "sprocket", v, ok)
	}
}

type serializedWidget struct {
	Name string
}

func TestSerialized_RoundTripsRegisteredStructType(t *testing.T) {
	RegisterGobType(serializedWidget{})
	c := NewSerialized("Widgets", NewPerpetual("Widgets"))
	k := key(1)
	c.Put(k, serializedWidget{Name: "sprocket"})

	v, ok := c.Get(k)
	if !ok {
		t.Fatal("expected a hit")
	}
	w, ok := v.(serializedWidget)
	if !ok || w.Name != "sprocket" {
		t.Fatalf("expected a decoded serializedWidget, got %#v", v)
	}
}

func TestBlocking_SecondGetOnAMissBlocksUntilPutOrRemove(t *testing.T) {
	c := NewBlocking("Widgets", NewPerpetual("Widgets"))
	k := key(1)

	if _, ok := c.Get(k); ok {
		t.Fatal("expected a miss, which should leave the lock held")
	}

	released := make(chan struct{})
	go func() {
		c.Get(k) // blocks until Put below releases the lock
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("expected the second Get to block while the key's lock is held")
	case <-time.After(20 * time.Millisecond):
	}

	c.Put(k, "a")

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("expected Put to release the lock so the blocked Get could proceed")
	}
}

func TestBlocking_RemoveReleasesLockWithoutStoring(t *testing.T) {
	c := NewBlocking("Widgets", NewPerpetual("Widgets"))
	k := key(1)
	c.Get(k)
	c.Remove(k)

	done := make(chan struct{})
	go func() {
		c.Get(k)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Remove to release the lock")
	}
}

func TestLogging_TracksHitsAndMisses(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	c := NewLogging("Widgets", NewPerpetual("Widgets"), reg)
	k := key(1)

	if _, ok := c.Get(k); ok {
		t.Fatal("expected a miss")
	}
	c.Put(k, "a")
	if _, ok := c.Get(k); !ok {
		t.Fatal("expected a hit")
	}

	if got := testutil.ToFloat64(reg.CacheHits.WithLabelValues("Widgets", "l2")); got != 1 {
		t.Fatalf("expected 1 recorded hit, got %v", got)
	}
	if got := testutil.ToFloat64(reg.CacheMisses.WithLabelValues("Widgets", "l2")); got != 1 {
		t.Fatalf("expected 1 recorded miss, got %v", got)
	}
}

func TestBuild_DefaultsToLRUWithSynchronizedAndSerializedAndLogging(t *testing.T) {
	c := Build(Config{ID: "Widgets"})
	// unwrap: Logging -> Synchronized -> Serialized -> LRU
	if _, ok := c.(*Logging); !ok {
		t.Fatalf("expected the outermost decorator to be Logging, got %T", c)
	}
}

func TestBuild_ReadOnlySkipsSerialized(t *testing.T) {
	c := Build(Config{ID: "Widgets", ReadOnly: true})
	logging, ok := c.(*Logging)
	if !ok {
		t.Fatalf("expected Logging outermost, got %T", c)
	}
	sync, ok := logging.delegate.(*Synchronized)
	if !ok {
		t.Fatalf("expected Synchronized under Logging, got %T", logging.delegate)
	}
	if _, ok := sync.delegate.(*Serialized); ok {
		t.Fatal("expected a read-only cache to skip the Serialized decorator")
	}
}

func TestBuild_BlockingWrapsWhenRequested(t *testing.T) {
	c := Build(Config{ID: "Widgets", Blocking: true, ReadOnly: true})
	logging := c.(*Logging)
	sync := logging.delegate.(*Synchronized)
	if _, ok := sync.delegate.(*Blocking); !ok {
		t.Fatalf("expected Blocking under Synchronized when requested, got %T", sync.delegate)
	}
}

func TestBuild_FIFOEviction(t *testing.T) {
	c := Build(Config{ID: "Widgets", Eviction: FIFOEviction, ReadOnly: true})
	logging := c.(*Logging)
	sync := logging.delegate.(*Synchronized)
	if _, ok := sync.delegate.(*FIFO); !ok {
		t.Fatalf("expected FIFO base for FIFOEviction, got %T", sync.delegate)
	}
}
