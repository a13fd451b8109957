package handler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/snapshot"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// racingSource publishes its next snapshot right after a reader takes the
// current one, the way a scheduler pass can land during stream setup.
type racingSource struct {
	mu        sync.Mutex
	current   *snapshot.Snapshot
	next      *snapshot.Snapshot
	observers []worker.Observer
}

func (r *racingSource) Observe(fn worker.Observer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
	return func() {}
}

func (r *racingSource) Snapshot() *snapshot.Snapshot {
	r.mu.Lock()
	snap := r.current
	next, observers := r.next, append([]worker.Observer(nil), r.observers...)
	r.current, r.next = r.next, nil
	r.mu.Unlock()

	if next != nil {
		for _, fn := range observers {
			fn(next)
		}
	}
	return snap
}

func drain(f *snapshotFeed) []uint64 {
	var sent []uint64
	for {
		select {
		case snap := <-f.ch:
			if f.advance(snap) {
				sent = append(sent, snap.Sequence)
			}
		default:
			return sent
		}
	}
}

func TestSnapshotFeed_KeepsSnapshotPublishedDuringSetup(t *testing.T) {
	src := &racingSource{current: &snapshot.Snapshot{Sequence: 1}, next: &snapshot.Snapshot{Sequence: 2}}

	feed, _ := newSnapshotFeed(src)

	assert.Equal(t, []uint64{2}, drain(feed), "sequence 1 is superseded by 2, which arrived first")
}

func TestSnapshotFeed_DropsDuplicatesAndOlder(t *testing.T) {
	src := &racingSource{current: &snapshot.Snapshot{Sequence: 3}}
	feed, _ := newSnapshotFeed(src)
	require.Len(t, src.observers, 1)

	src.observers[0](&snapshot.Snapshot{Sequence: 3})
	src.observers[0](&snapshot.Snapshot{Sequence: 2})
	src.observers[0](&snapshot.Snapshot{Sequence: 4})

	assert.Equal(t, []uint64{3, 4}, drain(feed))
}

func TestSnapshotFeed_NoCurrentSnapshot(t *testing.T) {
	feed, _ := newSnapshotFeed(&racingSource{})
	assert.Empty(t, drain(feed))
}
