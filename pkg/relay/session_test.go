package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joripage/tradehook/pkg/logging"
)

// fakeGateway scripts the Gateway capability for session and pipeline tests.
type fakeGateway struct {
	connectCalls int32
	connectErr   error
	connectDelay time.Duration

	connected atomic.Bool

	mu     sync.Mutex
	placed []*GatewayOrder
	ackFn  func(ord *GatewayOrder, ch chan Ack)

	placeErr error
}

func (f *fakeGateway) Connect(ctx context.Context, ep Endpoint, timeout time.Duration) error {
	atomic.AddInt32(&f.connectCalls, 1)
	if f.connectDelay > 0 {
		select {
		case <-time.After(f.connectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected.Store(true)
	return nil
}

func (f *fakeGateway) Disconnect() {
	f.connected.Store(false)
}

func (f *fakeGateway) IsConnected() bool {
	return f.connected.Load()
}

func (f *fakeGateway) PlaceOrder(ord *GatewayOrder) (<-chan Ack, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.mu.Lock()
	f.placed = append(f.placed, ord)
	f.mu.Unlock()

	ch := make(chan Ack, 1)
	if f.ackFn != nil {
		f.ackFn(ord, ch)
	}
	return ch, nil
}

func (f *fakeGateway) Release(clOrdID string) {}

func (f *fakeGateway) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.ERROR)
}

func newTestSessionManager(gw Gateway) *SessionManager {
	return NewSessionManager(gw, SessionConfig{
		Endpoint:       Endpoint{Host: "127.0.0.1", Port: 7497, ClientID: 1},
		ConnectTimeout: time.Second,
	}, testLogger())
}

func TestSessionStartsDisconnected(t *testing.T) {
	m := newTestSessionManager(&fakeGateway{})
	st := m.Status()
	if st.State != StateDisconnected {
		t.Fatalf("expected DISCONNECTED, got %s", st.State)
	}
	if st.Connected {
		t.Errorf("expected not connected")
	}
}

func TestEnsureConnectedTransitionsToConnected(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestSessionManager(gw)

	handle, err := m.EnsureConnected(context.Background())
	if err != nil {
		t.Fatalf("expected connect success, got %v", err)
	}
	if handle == nil {
		t.Fatal("expected a session handle")
	}
	if st := m.Status(); st.State != StateConnected || !st.Connected {
		t.Errorf("expected CONNECTED, got %+v", st)
	}
}

func TestEnsureConnectedNoOpWhenConnected(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestSessionManager(gw)

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&gw.connectCalls); n != 1 {
		t.Errorf("expected 1 connect attempt, got %d", n)
	}
}

func TestEnsureConnectedFailureStateAndLastError(t *testing.T) {
	gw := &fakeGateway{connectErr: fmt.Errorf("%w: dial tcp: host down", ErrGatewayUnreachable)}
	m := newTestSessionManager(gw)

	_, err := m.EnsureConnected(context.Background())
	if !errors.Is(err, ErrGatewayUnreachable) {
		t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
	}

	st := m.Status()
	if st.State != StateFailed {
		t.Errorf("expected FAILED, got %s", st.State)
	}
	if st.LastError == "" {
		t.Errorf("expected lastError to be retained")
	}
}

func TestEnsureConnectedClearsLastErrorOnSuccess(t *testing.T) {
	gw := &fakeGateway{connectErr: fmt.Errorf("%w: boom", ErrGatewayRefused)}
	m := newTestSessionManager(gw)

	if _, err := m.EnsureConnected(context.Background()); err == nil {
		t.Fatal("expected failure")
	}

	gw.connectErr = nil
	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("expected success after recovery, got %v", err)
	}
	if st := m.Status(); st.LastError != "" {
		t.Errorf("expected lastError cleared, got %q", st.LastError)
	}
}

func TestEnsureConnectedConcurrentSingleAttempt(t *testing.T) {
	gw := &fakeGateway{connectDelay: 50 * time.Millisecond}
	m := newTestSessionManager(gw)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.EnsureConnected(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if calls := atomic.LoadInt32(&gw.connectCalls); calls != 1 {
		t.Errorf("expected exactly 1 connect attempt for %d concurrent callers, got %d", n, calls)
	}
}

func TestEnsureConnectedWaitersAdoptFailedAttempt(t *testing.T) {
	gw := &fakeGateway{
		connectDelay: 50 * time.Millisecond,
		connectErr:   fmt.Errorf("%w: nobody home", ErrConnectTimeout),
	}
	m := newTestSessionManager(gw)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.EnsureConnected(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrConnectTimeout) {
			t.Errorf("caller %d: expected attempt's ErrConnectTimeout, got %v", i, err)
		}
	}
	if calls := atomic.LoadInt32(&gw.connectCalls); calls != 1 {
		t.Errorf("expected waiters to adopt the single attempt, got %d attempts", calls)
	}
}

func TestEnsureConnectedWaiterHonorsContext(t *testing.T) {
	gw := &fakeGateway{connectDelay: 200 * time.Millisecond}
	m := newTestSessionManager(gw)

	go func() {
		_, _ = m.EnsureConnected(context.Background())
	}()
	time.Sleep(20 * time.Millisecond) // let the first caller start its attempt

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := m.EnsureConnected(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestSessionManager(gw)

	m.Disconnect()
	m.Disconnect()
	if st := m.Status(); st.State != StateDisconnected {
		t.Fatalf("expected DISCONNECTED, got %s", st.State)
	}

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Disconnect()
	if st := m.Status(); st.State != StateDisconnected || st.Connected {
		t.Fatalf("expected disconnected after explicit Disconnect, got %+v", st)
	}
	if gw.IsConnected() {
		t.Errorf("expected gateway Disconnect to be forwarded")
	}
}

func TestEnsureConnectedReconnectsAfterTransportDrop(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestSessionManager(gw)

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Simulate the transport dropping underneath a CONNECTED state machine.
	gw.connected.Store(false)

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("expected reconnect, got %v", err)
	}
	if calls := atomic.LoadInt32(&gw.connectCalls); calls != 2 {
		t.Errorf("expected a second connect attempt after drop, got %d", calls)
	}
}
