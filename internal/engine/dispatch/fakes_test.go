package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeTransport answers with a fixed status per endpoint; unknown endpoints get 201.
type fakeTransport struct {
	statuses map[string]int
	errs     map[string]error
	calls    atomic.Int32

	mu     sync.Mutex
	bodies map[string][]byte
	opts   []SendOptions
}

func (f *fakeTransport) Send(ctx context.Context, target Target, body []byte, opts SendOptions) (int, error) {
	f.calls.Add(1)

	f.mu.Lock()
	if f.bodies == nil {
		f.bodies = map[string][]byte{}
	}
	f.bodies[target.Endpoint] = body
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if err, ok := f.errs[target.Endpoint]; ok {
		return 0, err
	}
	status, ok := f.statuses[target.Endpoint]
	if !ok {
		status = 201
	}
	if status >= 300 {
		return status, &StatusError{StatusCode: status}
	}
	return status, nil
}

type fakePruner struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (p *fakePruner) DeleteByID(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, id)
	return nil
}

var errNetwork = errors.New("dial tcp: connection refused")
