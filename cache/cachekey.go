// Package cache implements the two-tier statement cache: CacheKey (the
// composite key an executor builds from statement id, bound SQL, and
// parameter values) and a stack of Cache decorators that can wrap a base
// store with eviction, size-bounding, and transactional staging. Grounded
// on org.apache.ibatis.cache.CacheKey and the cache.decorators.* classes in
// original_source, with the LRU tier backed by hashicorp/golang-lru rather
// than a hand-rolled LinkedHashMap since that's a real dependency the rest
// of the example pack (eframework-org-GO.CRUD) already reaches for.
package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	defaultHashcode  = 17
	defaultMultiplier = 37
)

// Key is the composite cache key an executor builds per statement call,
// mirroring CacheKey's running hashcode/checksum/count accumulation so two
// keys built from the same (statement, sql, params, rowBounds) tuple in the
// same order are equal and hash identically. The hash depends on the order
// of the Update calls.
type Key struct {
	hashcode int64
	checksum int64
	count    int
	updates  []any
}

// NewKey builds an empty key ready for Update calls, equivalent to `new
// CacheKey()`.
func NewKey() *Key {
	return &Key{hashcode: defaultHashcode}
}

// Update folds another component (statement ID, SQL text, a bound
// parameter value, offset/limit, ...) into the key, in the same order
// BaseExecutor.createCacheKey folds them.
func (k *Key) Update(object any) {
	h := hashOf(object)
	k.count++
	k.checksum += int64(h)
	h *= uint32(k.count)
	k.hashcode = k.hashcode*defaultMultiplier + int64(h)
	k.updates = append(k.updates, object)
}

// UpdateAll folds a sequence of components in order.
func (k *Key) UpdateAll(objects ...any) {
	for _, o := range objects {
		k.Update(o)
	}
}

// Equal reports whether two keys were built from equal component sequences,
// matching CacheKey.equals's hashcode+checksum+count+per-element check.
func (k *Key) Equal(other *Key) bool {
	if other == nil {
		return false
	}
	if k.hashcode != other.hashcode || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	for i := range k.updates {
		if fmt.Sprint(k.updates[i]) != fmt.Sprint(other.updates[i]) {
			return false
		}
	}
	return true
}

// String renders a stable textual form suitable for use as a map key,
// since Go maps can't be keyed on a struct containing a hash.Hash64 or
// []any of possibly-unhashable values directly.
func (k *Key) String() string {
	parts := make([]string, len(k.updates))
	for i, u := range k.updates {
		parts[i] = fmt.Sprint(u)
	}
	return fmt.Sprintf("%d:%d:%d:%s", k.hashcode, k.checksum, k.count, strings.Join(parts, "\x1f"))
}

func hashOf(v any) uint32 {
	if v == nil {
		return 0
	}
	h := fnv.New32a()
	fmt.Fprint(h, v)
	return h.Sum32()
}
