package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

type memStrategyStore struct {
	rows      map[string]domain.TradingStrategy
	listCalls int
}

func newMemStrategyStore() *memStrategyStore {
	return &memStrategyStore{rows: make(map[string]domain.TradingStrategy)}
}

func (s *memStrategyStore) Create(_ context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	st.ID = uuid.NewString()
	st.CreatedAt = t0
	s.rows[st.ID] = st
	return st, nil
}

func (s *memStrategyStore) Update(_ context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	if _, ok := s.rows[st.ID]; !ok {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	s.rows[st.ID] = st
	return st, nil
}

func (s *memStrategyStore) Toggle(_ context.Context, id string) (domain.TradingStrategy, error) {
	st, ok := s.rows[id]
	if !ok {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	st.Active = !st.Active
	s.rows[id] = st
	return st, nil
}

func (s *memStrategyStore) Delete(_ context.Context, id string) error {
	if _, ok := s.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStrategyStore) Get(_ context.Context, id string) (domain.TradingStrategy, error) {
	st, ok := s.rows[id]
	if !ok {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	return st, nil
}

func (s *memStrategyStore) List(context.Context) ([]domain.TradingStrategy, error) {
	s.listCalls++
	out := make([]domain.TradingStrategy, 0, len(s.rows))
	for _, st := range s.rows {
		out = append(out, st)
	}
	return out, nil
}

func TestStrategyListCacheInvalidation(t *testing.T) {
	store := newMemStrategyStore()
	bus := newMemBus()
	aud := &memAudit{}
	svc := NewStrategyService(store, bus, aud, 0, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.TradingStrategy{Name: "ADA spread", Type: domain.StrategyArbitrage})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		list, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("len = %d, want 1", len(list))
		}
	}
	if store.listCalls != 1 {
		t.Errorf("store list calls = %d, want 1 while cached", store.listCalls)
	}

	toggled, err := svc.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if toggled.Active == created.Active {
		t.Error("Toggle did not flip active")
	}
	list, _ := svc.List(ctx)
	if store.listCalls != 2 || list[0].Active != toggled.Active {
		t.Errorf("cache not invalidated after toggle: calls=%d list=%+v", store.listCalls, list)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("len after delete = %d, want 0", len(list))
	}

	if n := bus.count(domain.ChannelStrategy); n != 3 {
		t.Errorf("published %d strategy events, want 3", n)
	}
	for _, ev := range []string{"strategy.created", "strategy.toggled", "strategy.deleted"} {
		if !aud.has(ev) {
			t.Errorf("missing audit %q", ev)
		}
	}
}

func TestStrategyValidation(t *testing.T) {
	svc := NewStrategyService(newMemStrategyStore(), nil, nil, 0, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		in   domain.TradingStrategy
	}{
		{name: "missing name", in: domain.TradingStrategy{Type: domain.StrategyDCA}},
		{name: "unknown type", in: domain.TradingStrategy{Name: "x", Type: "scalping"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); !errors.Is(err, domain.ErrInvalidStrategy) {
				t.Errorf("Create err = %v, want ErrInvalidStrategy", err)
			}
		})
	}

	if _, err := svc.Update(ctx, domain.TradingStrategy{ID: "missing", Name: "x", Type: domain.StrategyGrid}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
}
