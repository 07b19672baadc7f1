package needs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Store persists needs lists and their children. SaveList replaces the
// header fields and both row sets in one atomic write; version rows and
// status-change rows are append-only.
type Store interface {
	CreateList(ctx context.Context, l List) (List, error)
	GetList(ctx context.Context, id string) (List, error)
	SaveList(ctx context.Context, l List) error
	DeleteList(ctx context.Context, id string) error
	ListLists(ctx context.Context) ([]List, error)

	AppendStatusChange(ctx context.Context, sc StatusChange) error
	StatusHistory(ctx context.Context, listID string) ([]StatusChange, error)

	CreateChangeRequest(ctx context.Context, cr ChangeRequest) (ChangeRequest, error)
	GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error)
	UpdateChangeRequest(ctx context.Context, cr ChangeRequest) error
	ListChangeRequests(ctx context.Context, listID string) ([]ChangeRequest, error)

	// AppendVersion assigns the next sequential version number for the list.
	AppendVersion(ctx context.Context, v FulfilmentVersion) (FulfilmentVersion, error)
	ListVersions(ctx context.Context, listID string) ([]FulfilmentVersion, error)
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu             sync.RWMutex
	lists          map[string]*List
	history        map[string][]StatusChange
	changeRequests map[string]*ChangeRequest
	versions       map[string][]FulfilmentVersion
	nextNumber     int
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemory {
	return &InMemory{
		lists:          make(map[string]*List),
		history:        make(map[string][]StatusChange),
		changeRequests: make(map[string]*ChangeRequest),
		versions:       make(map[string][]FulfilmentVersion),
	}
}

func (s *InMemory) CreateList(ctx context.Context, l List) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNumber++
	l.ID = ids.New()
	l.Number = fmt.Sprintf("NL-%06d", s.nextNumber)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = ids.New()
		}
	}
	cp := cloneList(l)
	s.lists[l.ID] = &cp
	return l, nil
}

func (s *InMemory) GetList(ctx context.Context, id string) (List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[id]
	if !ok {
		return List{}, ErrNotFound
	}
	return cloneList(*l), nil
}

func (s *InMemory) SaveList(ctx context.Context, l List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[l.ID]; !ok {
		return ErrNotFound
	}
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = ids.New()
		}
	}
	for i := range l.Fulfilments {
		if l.Fulfilments[i].ID == "" {
			l.Fulfilments[i].ID = ids.New()
		}
	}
	cp := cloneList(l)
	s.lists[l.ID] = &cp
	return nil
}

func (s *InMemory) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return ErrNotFound
	}
	// Cascade: the list owns its history, requests and versions.
	delete(s.lists, id)
	delete(s.history, id)
	delete(s.versions, id)
	for crID, cr := range s.changeRequests {
		if cr.ListID == id {
			delete(s.changeRequests, crID)
		}
	}
	return nil
}

func (s *InMemory) ListLists(ctx context.Context) ([]List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]List, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, cloneList(*l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *InMemory) AppendStatusChange(ctx context.Context, sc StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == "" {
		sc.ID = ids.New()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	s.history[sc.ListID] = append(s.history[sc.ListID], sc)
	return nil
}

func (s *InMemory) StatusHistory(ctx context.Context, listID string) ([]StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StatusChange, len(s.history[listID]))
	copy(out, s.history[listID])
	return out, nil
}

func (s *InMemory) CreateChangeRequest(ctx context.Context, cr ChangeRequest) (ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr.ID = ids.New()
	now := time.Now().UTC()
	if cr.CreatedAt.IsZero() {
		cr.CreatedAt = now
	}
	cr.UpdatedAt = now
	cp := cr
	s.changeRequests[cr.ID] = &cp
	return cr, nil
}

func (s *InMemory) GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.changeRequests[id]
	if !ok {
		return ChangeRequest{}, ErrNotFound
	}
	return *cr, nil
}

func (s *InMemory) UpdateChangeRequest(ctx context.Context, cr ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.changeRequests[cr.ID]; !ok {
		return ErrNotFound
	}
	cr.UpdatedAt = time.Now().UTC()
	cp := cr
	s.changeRequests[cr.ID] = &cp
	return nil
}

func (s *InMemory) ListChangeRequests(ctx context.Context, listID string) ([]ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ChangeRequest
	for _, cr := range s.changeRequests {
		if cr.ListID == listID {
			out = append(out, *cr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) AppendVersion(ctx context.Context, v FulfilmentVersion) (FulfilmentVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = ids.New()
	v.Version = len(s.versions[v.ListID]) + 1
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.PrevRows = cloneRows(v.PrevRows)
	v.NewRows = cloneRows(v.NewRows)
	s.versions[v.ListID] = append(s.versions[v.ListID], v)
	return v, nil
}

// CommitChangeApproval writes the version snapshot, the revised list and the
// closed change request under one lock. Existence is checked for every record
// before anything is mutated, so a missing record leaves no partial write.
func (s *InMemory) CommitChangeApproval(ctx context.Context, l List, v FulfilmentVersion, cr ChangeRequest) (FulfilmentVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[l.ID]; !ok {
		return FulfilmentVersion{}, ErrNotFound
	}
	if _, ok := s.changeRequests[cr.ID]; !ok {
		return FulfilmentVersion{}, ErrNotFound
	}

	v.ID = ids.New()
	v.Version = len(s.versions[v.ListID]) + 1
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.PrevRows = cloneRows(v.PrevRows)
	v.NewRows = cloneRows(v.NewRows)
	s.versions[v.ListID] = append(s.versions[v.ListID], v)

	for i := range l.Fulfilments {
		if l.Fulfilments[i].ID == "" {
			l.Fulfilments[i].ID = ids.New()
		}
	}
	cp := cloneList(l)
	s.lists[l.ID] = &cp

	cr.UpdatedAt = time.Now().UTC()
	crCp := cr
	s.changeRequests[cr.ID] = &crCp
	return v, nil
}

func (s *InMemory) ListVersions(ctx context.Context, listID string) ([]FulfilmentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FulfilmentVersion, len(s.versions[listID]))
	copy(out, s.versions[listID])
	return out, nil
}

func cloneList(l List) List {
	l.Items = append([]Item(nil), l.Items...)
	l.Fulfilments = cloneRows(l.Fulfilments)
	return l
}

func cloneRows(rows []Fulfilment) []Fulfilment {
	if rows == nil {
		return nil
	}
	return append([]Fulfilment(nil), rows...)
}
