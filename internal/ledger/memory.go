package ledger

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/paycore/payroll-engine/internal/domain"
)

const memoryShards = 32

type memoryShard struct {
	mu      sync.Mutex
	entries map[domain.LedgerKey]*domain.LedgerEntry
	events  map[string]struct{}
}

// MemoryStore keeps the ledger in process. Keys are spread over a fixed set of shards,
// each with its own lock, so unrelated orders rarely share a lock and one order's events
// always serialize.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			entries: map[domain.LedgerKey]*domain.LedgerEntry{},
			events:  map[string]struct{}{},
		}
	}
	return s
}

func (s *MemoryStore) shard(key domain.LedgerKey) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return s.shards[h.Sum32()%memoryShards]
}

func (s *MemoryStore) Apply(ctx context.Context, ev domain.WithholdingEvent) (ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return ApplyResult{}, err
	}
	if err := validateEvent(ev); err != nil {
		return ApplyResult{}, err
	}
	sh := s.shard(ev.Key())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, seen := sh.events[ev.EventID]; seen {
		var current domain.LedgerEntry
		if e, ok := sh.entries[ev.Key()]; ok {
			current = cloneEntry(*e)
		}
		return ApplyResult{Entry: current, Duplicate: true}, nil
	}
	sh.events[ev.EventID] = struct{}{}

	entry, ok := sh.entries[ev.Key()]
	if !ok {
		created := newEntry(ev)
		sh.entries[ev.Key()] = &created
		return ApplyResult{Entry: cloneEntry(created)}, nil
	}
	advance(entry, ev)
	return ApplyResult{Entry: cloneEntry(*entry)}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneEntry(*e)
	return &out, nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, key domain.LedgerKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.Status = domain.LedgerCompleted
	return nil
}

// List returns an employee's entries ordered by order id.
func (s *MemoryStore) List(ctx context.Context, employerID, employeeID string) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.LedgerEntry
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if k.EmployerID == employerID && k.EmployeeID == employeeID {
				out = append(out, cloneEntry(*e))
			}
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneEntry(e domain.LedgerEntry) domain.LedgerEntry {
	out := e
	if e.InitialArrears != nil {
		v := *e.InitialArrears
		out.InitialArrears = &v
	}
	if e.RemainingArrears != nil {
		v := *e.RemainingArrears
		out.RemainingArrears = &v
	}
	if e.LastCheckDate != nil {
		v := *e.LastCheckDate
		out.LastCheckDate = &v
	}
	return out
}
