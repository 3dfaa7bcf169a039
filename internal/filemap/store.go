package filemap

import (
	"sync"

	"github.com/vanpelt/sitecraft/internal/models"
)

// ChangeReason says why the store changed
type ChangeReason string

const (
	ReasonMerge ChangeReason = "merge"
	ReasonSeed  ChangeReason = "seed"
	ReasonReset ChangeReason = "reset"
)

// Change is delivered to subscribers after every write
type Change struct {
	Revision uint64
	Reason   ChangeReason
	Paths    []string // Paths written by this change; empty for reset
}

// Store owns the dynamic files of one conversation. Writes replace the whole
// map, so a reader holding a snapshot never sees a half-applied merge.
type Store struct {
	mu       sync.RWMutex
	dynamic  FileMap
	defaults FileMap
	revision uint64

	subsMu sync.Mutex
	subs   map[int]chan Change
	nextID int
}

// NewStore creates an empty store over the default scaffold
func NewStore() *Store {
	return NewStoreWithDefaults(Defaults())
}

// NewStoreWithDefaults creates an empty store over a custom base file set
func NewStoreWithDefaults(defaults FileMap) *Store {
	return &Store{
		dynamic:  FileMap{},
		defaults: defaults.Clone(),
		subs:     make(map[int]chan Change),
	}
}

// Merge writes generated files over the current set. Paths are normalized;
// files not named keep their current content. Returns the merged paths.
func (s *Store) Merge(files []models.GeneratedFile) []string {
	incoming := FromGenerated(files)
	if len(incoming) == 0 {
		return nil
	}
	return s.MergeMap(incoming)
}

// MergeMap is Merge for an already-normalized FileMap
func (s *Store) MergeMap(incoming FileMap) []string {
	s.mu.Lock()
	next := Overlay(s.dynamic, incoming)
	s.dynamic = next
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	paths := incoming.Paths()
	s.publish(Change{Revision: rev, Reason: ReasonMerge, Paths: paths})
	return paths
}

// Seed replaces the dynamic set, used when a stored conversation is opened
func (s *Store) Seed(files FileMap) {
	s.mu.Lock()
	s.dynamic = files.Clone()
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.publish(Change{Revision: rev, Reason: ReasonSeed, Paths: files.Paths()})
}

// Reset drops every dynamic file ("new chat")
func (s *Store) Reset() {
	s.mu.Lock()
	s.dynamic = FileMap{}
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.publish(Change{Revision: rev, Reason: ReasonReset})
}

// Snapshot returns a copy of the dynamic files only
func (s *Store) Snapshot() FileMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dynamic.Clone()
}

// Effective returns the scaffold overlaid by the dynamic files; this is what
// the preview builds and what export/deploy ship.
func (s *Store) Effective() FileMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Overlay(s.defaults, s.dynamic)
}

// Revision increases on every write
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Len returns the number of dynamic files
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dynamic)
}

// Subscribe returns a channel of changes and a cancel func. A slow consumer
// only ever misses intermediate changes, never the latest one.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Change, 1)
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) publish(change Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// Replace the stale pending change with the newest one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}
