package verify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/platform/models"
)

type fakeStore struct {
	byUser  map[string][]*models.PushSubscription
	listErr map[string]error
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	if err := f.listErr[userID]; err != nil {
		return nil, err
	}
	return f.byUser[userID], nil
}

func (f *fakeStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range f.byUser {
		ids = append(ids, id)
	}
	for id := range f.listErr {
		ids = append(ids, id)
	}
	return ids, nil
}

type statusTransport struct {
	statuses map[string]int

	mu     sync.Mutex
	bodies []string
	ttls   []int
}

func (s *statusTransport) Send(ctx context.Context, target dispatch.Target, body []byte, opts dispatch.SendOptions) (int, error) {
	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.ttls = append(s.ttls, opts.TTL)
	s.mu.Unlock()

	status, ok := s.statuses[target.Endpoint]
	if !ok {
		status = 201
	}
	if status >= 300 {
		return status, &dispatch.StatusError{StatusCode: status}
	}
	return status, nil
}

type recordingPruner struct {
	mu  sync.Mutex
	ids []string
}

func (p *recordingPruner) DeleteByID(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

func newSweeper(store Store, statuses map[string]int, strict bool) (*Sweeper, *statusTransport, *recordingPruner) {
	tr := &statusTransport{statuses: statuses}
	pruner := &recordingPruner{}
	engine := dispatch.NewEngine(tr, dispatch.Policy{Strict: strict}, pruner, dispatch.SendOptions{TTL: 86400}, nil, zerolog.Nop())
	return NewSweeper(store, engine, zerolog.Nop()), tr, pruner
}

func TestSweep_RemovesInvalid(t *testing.T) {
	store := &fakeStore{byUser: map[string][]*models.PushSubscription{
		"user1": {
			{ID: "s1", Endpoint: "https://push.example/ok"},
			{ID: "s2", Endpoint: "https://push.example/gone"},
			{ID: "s3", Endpoint: "https://push.example/unauthorized"},
			{ID: "s4", Endpoint: "https://push.example/busy"},
		},
	}}
	statuses := map[string]int{
		"https://push.example/gone":         410,
		"https://push.example/unauthorized": 401,
		"https://push.example/busy":         429,
	}

	s, tr, pruner := newSweeper(store, statuses, true)
	summary, err := s.Sweep(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if summary.Total != 4 || summary.Removed != 2 {
		t.Errorf("Expected 2 of 4 removed, got %+v", summary)
	}
	if summary.Message != "2 dispositivo(s) inválido(s) removido(s)" {
		t.Errorf("Message = %q", summary.Message)
	}
	if len(pruner.ids) != 2 {
		t.Errorf("Expected 2 deletions, got %v", pruner.ids)
	}
	if len(summary.Details) != 4 {
		t.Errorf("Expected 4 details, got %d", len(summary.Details))
	}
	for i, body := range tr.bodies {
		if body != `{"type":"verify"}` || tr.ttls[i] != 0 {
			t.Errorf("Expected silent check with TTL 0, got %s ttl=%d", body, tr.ttls[i])
		}
	}
}

func TestSweep_AllValid(t *testing.T) {
	store := &fakeStore{byUser: map[string][]*models.PushSubscription{
		"user1": {{ID: "s1", Endpoint: "https://push.example/ok"}},
	}}
	s, _, _ := newSweeper(store, nil, false)

	summary, err := s.Sweep(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if summary.Removed != 0 || summary.Message != MsgAllValid {
		t.Errorf("Unexpected summary %+v", summary)
	}
}

func TestSweep_NoDevices(t *testing.T) {
	s, tr, _ := newSweeper(&fakeStore{}, nil, false)

	summary, err := s.Sweep(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if summary.Total != 0 || summary.Message != MsgNothingToVerify {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if len(tr.bodies) != 0 {
		t.Errorf("Expected no sends, got %d", len(tr.bodies))
	}
}

func TestSweep_LoadFailure(t *testing.T) {
	store := &fakeStore{listErr: map[string]error{"user1": errors.New("db down")}}
	s, _, _ := newSweeper(store, nil, false)

	if _, err := s.Sweep(context.Background(), "user1"); err == nil {
		t.Error("Expected load error")
	}
}

func TestSweepAll(t *testing.T) {
	store := &fakeStore{
		byUser: map[string][]*models.PushSubscription{
			"user1": {{ID: "a", Endpoint: "https://push.example/a"}, {ID: "b", Endpoint: "https://push.example/b-gone"}},
			"user2": {{ID: "c", Endpoint: "https://push.example/c"}},
		},
		listErr: map[string]error{"user3": errors.New("boom")},
	}
	s, _, _ := newSweeper(store, map[string]int{"https://push.example/b-gone": 404}, false)

	total, removed, err := s.SweepAll(context.Background())
	if err == nil {
		t.Error("Expected the failing user to be reported")
	}
	if total != 3 || removed != 1 {
		t.Errorf("Expected total=3 removed=1, got %d, %d", total, removed)
	}
}
