// Package memory provides an in-process store.Store, used by tests, the
// scenario runner and as the extension's fallback backend.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/xraph/iou"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Journal storage, per contract, index i holds seq i+1
	entries map[id.ContractID][]*journal.Entry

	// Issue entries in append order
	issuances []*journal.Entry

	checkpoints map[id.ContractID]*journal.Checkpoint

	closed bool
}

func New() *Store {
	return &Store{
		entries:     make(map[id.ContractID][]*journal.Entry),
		checkpoints: make(map[id.ContractID]*journal.Checkpoint),
	}
}

func (s *Store) AppendEntry(_ context.Context, e *journal.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", iou.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return iou.ErrStoreClosed
	}

	log := s.entries[e.ContractID]
	switch next := int64(len(log)) + 1; {
	case e.Seq < next:
		return fmt.Errorf("%w: %s seq %d", iou.ErrAlreadyExists, e.ContractID, e.Seq)
	case e.Seq > next:
		return fmt.Errorf("%w: %s seq %d leaves a gap after %d", iou.ErrInvalidInput, e.ContractID, e.Seq, next-1)
	}

	stored := cloneEntry(e)
	s.entries[e.ContractID] = append(log, stored)
	if stored.Op == journal.OpIssue {
		s.issuances = append(s.issuances, stored)
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, contractID id.ContractID, afterSeq int64) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.entries[contractID]
	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(log)) {
		return nil, nil
	}

	out := make([]*journal.Entry, 0, int64(len(log))-afterSeq)
	for _, e := range log[afterSeq:] {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (s *Store) ListIssuances(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.issuances
	if opts.Offset > 0 {
		if opts.Offset >= len(list) {
			return nil, nil
		}
		list = list[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(list) {
		list = list[:opts.Limit]
	}

	out := make([]*journal.Entry, len(list))
	for i, e := range list {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

func (s *Store) SaveCheckpoint(_ context.Context, cp *journal.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return iou.ErrStoreClosed
	}
	if cur, ok := s.checkpoints[cp.ContractID]; ok && cur.Seq >= cp.Seq {
		return nil
	}
	s.checkpoints[cp.ContractID] = cloneCheckpoint(cp)
	return nil
}

func (s *Store) GetCheckpoint(_ context.Context, contractID id.ContractID) (*journal.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[contractID]
	if !ok {
		return nil, iou.ErrCheckpointNotFound
	}
	return cloneCheckpoint(cp), nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return iou.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneEntry(e *journal.Entry) *journal.Entry {
	c := *e
	c.Events = slices.Clone(e.Events)
	return &c
}

func cloneCheckpoint(cp *journal.Checkpoint) *journal.Checkpoint {
	c := *cp
	c.Balances = maps.Clone(cp.Balances)
	c.Allowances = slices.Clone(cp.Allowances)
	return &c
}
