package lock

import (
	"errors"
	"testing"

	"github.com/dreamware/trough/internal/store"
	"github.com/dreamware/trough/internal/terrors"
)

func TestLockAcquireFirstCallerWins(t *testing.T) {
	l := New(store.NewMemStore())

	rec, won, err := l.Acquire("test-segment", "test-node", 6112)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !won {
		t.Fatal("first acquirer should win")
	}
	if rec.Node != "test-node" || rec.Port != 6112 {
		t.Errorf("rec = %+v, want node=test-node port=6112", rec)
	}
}

func TestLockAcquireSecondCallerSeesHolder(t *testing.T) {
	l := New(store.NewMemStore())

	if _, won, err := l.Acquire("test-segment", "node-a", 6112); err != nil || !won {
		t.Fatalf("first acquire: won=%v err=%v", won, err)
	}

	rec, won, err := l.Acquire("test-segment", "node-b", 6113)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if won {
		t.Fatal("second acquirer should not win")
	}
	if rec.Node != "node-a" {
		t.Errorf("rec.Node = %q, want node-a", rec.Node)
	}
}

func TestLockLoadUnlockedSegment(t *testing.T) {
	l := New(store.NewMemStore())

	_, err := l.Load("unused-segment")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load on unlocked segment: got %v, want store.ErrNotFound", err)
	}
}

func TestLockReleaseByWrongHolderFails(t *testing.T) {
	l := New(store.NewMemStore())

	if _, _, err := l.Acquire("test-segment", "node-a", 6112); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	err := l.Release("test-segment", "node-b", 6113)
	if !errors.Is(err, terrors.ErrAlreadyHeld) {
		t.Errorf("Release by wrong holder: got %v, want terrors.ErrAlreadyHeld", err)
	}
}

func TestLockReleaseThenReacquire(t *testing.T) {
	l := New(store.NewMemStore())

	if _, _, err := l.Acquire("test-segment", "node-a", 6112); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release("test-segment", "node-a", 6112); err != nil {
		t.Fatalf("release: %v", err)
	}

	_, won, err := l.Acquire("test-segment", "node-b", 6113)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !won {
		t.Error("reacquire after release should win")
	}
}
