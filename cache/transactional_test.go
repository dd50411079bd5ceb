package cache

import "testing"

func TestTransactional_GetNeverSeesUncommittedWrites(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	tx := NewTransactional(delegate)
	k := key(1)

	tx.Put(k, "staged")
	if _, ok := tx.Get(k); ok {
		t.Fatal("expected Get to miss on a write staged but not yet committed")
	}
	if _, ok := delegate.Get(k); ok {
		t.Fatal("expected Put to leave the delegate untouched before Commit")
	}
}

func TestTransactional_CommitFlushesStagedWritesToDelegate(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	tx := NewTransactional(delegate)
	k := key(1)

	tx.Put(k, "sprocket")
	tx.Commit()

	if v, ok := delegate.Get(k); !ok || v != "sprocket" {
		t.Fatalf("expected delegate to hold the committed value, got %v, %v", v, ok)
	}
}

func TestTransactional_RollbackDiscardsStagedWritesWithoutTouchingDelegate(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	delegate.Put(key(2), "untouched")
	tx := NewTransactional(delegate)
	k := key(1)

	tx.Put(k, "sprocket")
	tx.Rollback()

	if _, ok := delegate.Get(k); ok {
		t.Fatal("expected Rollback to discard a staged write without ever reaching the delegate")
	}
	if v, ok := delegate.Get(key(2)); !ok || v != "untouched" {
		t.Fatal("expected Rollback to leave pre-existing delegate entries alone")
	}
}

// TestTransactional_GetIsUnreadableAfterClearUntilNextCommit is a regression
// test for Get ignoring clearOnCommit: once Clear has been called, every Get
// must return a miss -- even for a key the delegate still holds -- until the
// next Commit or Rollback resets staging state, matching
// TransactionalCache.getObject's "if (clearOnCommit) return null" check.
func TestTransactional_GetIsUnreadableAfterClearUntilNextCommit(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	k := key(1)
	delegate.Put(k, "sprocket")

	tx := NewTransactional(delegate)
	if v, ok := tx.Get(k); !ok || v != "sprocket" {
		t.Fatalf("expected Get to see the delegate's existing entry before Clear, got %v, %v", v, ok)
	}

	tx.Clear()
	if _, ok := tx.Get(k); ok {
		t.Fatal("expected every Get to miss once Clear has set clearOnCommit, regardless of the delegate's contents")
	}

	tx.Commit()
	if _, ok := delegate.Get(k); ok {
		t.Fatal("expected Commit to wipe the delegate after a Clear")
	}
}

func TestTransactional_CommitNullsOutKeysMissedDuringTransaction(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	tx := NewTransactional(delegate)
	k := key(1)

	tx.Get(k) // miss, recorded in entriesMissedInCache
	tx.Commit()

	v, ok := delegate.Get(k)
	if !ok {
		t.Fatal("expected Commit to null out a key that was missed during the transaction")
	}
	if v != nil {
		t.Fatalf("expected the nulled-out entry's value to be nil, got %v", v)
	}
}

func TestTransactional_CommitPrefersStagedValueOverMissNulling(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	tx := NewTransactional(delegate)
	k := key(1)

	tx.Get(k)             // miss, recorded
	tx.Put(k, "sprocket") // same key later staged for write
	tx.Commit()

	if v, ok := delegate.Get(k); !ok || v != "sprocket" {
		t.Fatalf("expected the staged write to win over the recorded miss, got %v, %v", v, ok)
	}
}

func TestTransactional_RemoveActsAsClear(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	delegate.Put(key(2), "untouched")
	tx := NewTransactional(delegate)

	tx.Put(key(1), "staged")
	tx.Remove(key(1))
	if _, ok := tx.Get(key(1)); ok {
		t.Fatal("expected Remove to behave like Clear and make the cache unreadable until commit")
	}

	tx.Commit()
	if _, ok := delegate.Get(key(2)); ok {
		t.Fatal("expected Remove's Clear-on-commit semantics to wipe the whole delegate")
	}
}

func TestManager_TracksOneTransactionalPerUnderlyingCacheID(t *testing.T) {
	delegate := NewPerpetual("Widgets")
	m := NewManager()
	k := key(1)

	m.Put(delegate, k, "sprocket")
	if _, ok := delegate.Get(k); ok {
		t.Fatal("expected Manager.Put to stage through a Transactional, not write the delegate directly")
	}

	m.Commit()
	if v, ok := delegate.Get(k); !ok || v != "sprocket" {
		t.Fatalf("expected Manager.Commit to flush staged writes, got %v, %v", v, ok)
	}
}

func TestManager_RollbackDiscardsAllTrackedTransactionals(t *testing.T) {
	widgets := NewPerpetual("Widgets")
	gadgets := NewPerpetual("Gadgets")
	m := NewManager()

	m.Put(widgets, key(1), "a")
	m.Put(gadgets, key(2), "b")
	m.Rollback()

	if _, ok := widgets.Get(key(1)); ok {
		t.Fatal("expected Rollback to discard staged writes across every tracked cache")
	}
	if _, ok := gadgets.Get(key(2)); ok {
		t.Fatal("expected Rollback to discard staged writes across every tracked cache")
	}
}
