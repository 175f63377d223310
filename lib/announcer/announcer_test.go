package announcer

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"testing"

	"github.com/go-zookeeper/zk"

	"github.com/chronos-tachyon/ticks/lib/membership"
)

type fakeImpl struct {
	announceErr error
	announced   int
	withdrawn   int
	closed      int
	last        *membership.Ticks
}

func (impl *fakeImpl) Announce(ctx context.Context, t *membership.Ticks) error {
	if impl.announceErr != nil {
		return impl.announceErr
	}
	impl.announced++
	impl.last = t
	return nil
}

func (impl *fakeImpl) Withdraw(ctx context.Context) error {
	impl.withdrawn++
	return nil
}

func (impl *fakeImpl) Close() error {
	impl.closed++
	return nil
}

var _ Impl = (*fakeImpl)(nil)

func sampleTicks() *membership.Ticks {
	return &membership.Ticks{
		Ready:    true,
		Unique:   "abc",
		IP:       net.IPv4(192, 0, 2, 1).To4(),
		Ports:    map[string]uint16{"http": 6801},
		Trackers: []string{"anemometer"},
	}
}

func TestAnnouncer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	good := &fakeImpl{}
	bad := &fakeImpl{announceErr: errors.New("boom")}
	quiet := &fakeImpl{announceErr: fs.ErrClosed}

	a := New()
	a.Add(good)
	a.Add(bad)
	a.Add(quiet)
	if a.Len() != 3 {
		t.Errorf("Len: expected 3, got %d", a.Len())
	}

	err := a.Announce(ctx, sampleTicks())
	if err == nil {
		t.Error("Announce: expected error from failing impl")
	}
	if good.announced != 1 || good.last.Unique != "abc" {
		t.Errorf("good impl: announced=%d last=%v", good.announced, good.last)
	}

	if err := a.Withdraw(ctx); err != nil {
		t.Errorf("Withdraw: unexpected error: %v", err)
	}
	if good.withdrawn != 1 {
		t.Errorf("good impl: expected 1 withdraw, got %d", good.withdrawn)
	}
	if bad.withdrawn != 0 || quiet.withdrawn != 0 {
		t.Errorf("failed impls must not be withdrawn: bad=%d quiet=%d", bad.withdrawn, quiet.withdrawn)
	}

	good.announceErr = nil
	if err := a.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
	if good.closed != 1 || bad.closed != 1 || quiet.closed != 1 {
		t.Errorf("Close: expected every impl closed once: %d %d %d", good.closed, bad.closed, quiet.closed)
	}
	if err := a.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close: expected fs.ErrClosed, got %v", err)
	}
}

func TestAnnouncer_CloseWithdraws(t *testing.T) {
	impl := &fakeImpl{}
	a := New()
	a.Add(impl)
	if err := a.Announce(context.Background(), sampleTicks()); err != nil {
		t.Fatalf("Announce: unexpected error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
	if impl.withdrawn != 1 {
		t.Errorf("expected Close to withdraw, got %d withdraws", impl.withdrawn)
	}
}

func TestAnnouncer_Panics(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	ctx := context.Background()

	a := New()
	expectPanic("Withdraw before Announce", func() { _ = a.Withdraw(ctx) })

	a.Add(&fakeImpl{})
	_ = a.Announce(ctx, sampleTicks())
	expectPanic("double Announce", func() { _ = a.Announce(ctx, sampleTicks()) })
	expectPanic("Add while announced", func() { a.Add(&fakeImpl{}) })

	_ = a.Close()
	expectPanic("Announce after Close", func() { _ = a.Announce(ctx, sampleTicks()) })
}

func TestEncodePayload(t *testing.T) {
	type testRow struct {
		Format    Format
		NamedPort string
		Expect    string
	}

	testData := [...]testRow{
		{
			Format: TicksFormat,
			Expect: `{"ready":true,"unique":"abc","ip":"192.0.2.1","ports":{"http":6801},"trackers":["anemometer"]}`,
		},
		{
			Format:    FinagleFormat,
			NamedPort: "http",
			Expect:    `{"serviceEndpoint":{"host":"192.0.2.1","port":6801},"additionalEndpoints":{"http":{"host":"192.0.2.1","port":6801}},"status":"ALIVE","metadata":{"unique":"abc"}}`,
		},
	}

	for index, row := range testData {
		raw, err := encodePayload(sampleTicks(), row.Format, row.NamedPort)
		if err != nil {
			t.Errorf("[%d]: unexpected error: %v", index, err)
			continue
		}
		var actual, expect interface{}
		if err := json.Unmarshal(raw, &actual); err != nil {
			t.Errorf("[%d]: output is not JSON: %v", index, err)
			continue
		}
		_ = json.Unmarshal([]byte(row.Expect), &expect)
		a, _ := json.Marshal(actual)
		e, _ := json.Marshal(expect)
		if string(a) != string(e) {
			t.Errorf("[%d]: expected %s, got %s", index, e, a)
		}
	}

	if _, err := encodePayload(sampleTicks(), FinagleFormat, "grpc"); err == nil {
		t.Error("missing named port: expected error")
	}
}

func TestFormat_Parse(t *testing.T) {
	type testRow struct {
		Input  string
		Expect Format
		Err    bool
	}

	testData := [...]testRow{
		{"", TicksFormat, false},
		{"ticks", TicksFormat, false},
		{"finagle", FinagleFormat, false},
		{"serverset", 0, true},
	}

	for index, row := range testData {
		var f Format
		err := f.Parse(row.Input)
		switch {
		case row.Err && err == nil:
			t.Errorf("[%d]: %q: expected error", index, row.Input)
		case !row.Err && err != nil:
			t.Errorf("[%d]: %q: unexpected error: %v", index, row.Input, err)
		case !row.Err && f != row.Expect:
			t.Errorf("[%d]: %q: expected %v, got %v", index, row.Input, row.Expect, f)
		}
	}
}

func TestMapZKError(t *testing.T) {
	type testRow struct {
		Input  error
		Expect error
	}

	testData := [...]testRow{
		{nil, nil},
		{zk.ErrConnectionClosed, fs.ErrClosed},
		{zk.ErrClosing, fs.ErrClosed},
		{zk.ErrNodeExists, fs.ErrExist},
		{zk.ErrNoNode, fs.ErrNotExist},
		{zk.ErrBadVersion, zk.ErrBadVersion},
	}

	for index, row := range testData {
		actual := MapZKError(row.Input)
		if actual != row.Expect {
			t.Errorf("[%d]: expected %v, got %v", index, row.Expect, actual)
		}
	}
}

func TestMapEtcdError(t *testing.T) {
	if err := MapEtcdError(nil); err != nil {
		t.Errorf("nil: expected nil, got %v", err)
	}
	if err := MapEtcdError(context.Canceled); err != fs.ErrClosed {
		t.Errorf("context.Canceled: expected fs.ErrClosed, got %v", err)
	}
	other := errors.New("other")
	if err := MapEtcdError(other); err != other {
		t.Errorf("other: expected passthrough, got %v", err)
	}
}
