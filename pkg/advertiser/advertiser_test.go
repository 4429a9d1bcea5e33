package advertiser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
)

type fakeSetter struct {
	mu     sync.Mutex
	calls  []string
	err    error
	notify chan struct{}
}

func (f *fakeSetter) SetAdvertisingPayload(handle uint8, p *ad.Payload) error {
	f.mu.Lock()
	defer func() {
		f.mu.Unlock()
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, ad.LocalName(mustEncode(p)))
	return nil
}

func (f *fakeSetter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func mustEncode(p *ad.Payload) []byte {
	buf, err := p.Encode()
	if err != nil {
		panic(err)
	}
	return buf
}

func named(target ad.Target, name string) ad.Payload {
	return ad.Payload{Target: target, Elements: []ad.Element{ad.CompleteLocalName(name)}}
}

func TestApply(t *testing.T) {
	f := &fakeSetter{}
	a := New(f, NewConfig())

	if err := a.Apply(named(ad.TargetAdvertising, "one")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	bad := ad.Payload{Elements: []ad.Element{{Type: ad.TypeFlags, Length: 2, Data: []byte{0x06}}}}
	if err := a.Apply(bad); !errors.Is(err, ad.ErrLengthMismatch) {
		t.Errorf("Apply() error = %v, want ErrLengthMismatch", err)
	}
	if got := f.names(); len(got) != 1 || got[0] != "one" {
		t.Errorf("setter calls = %v", got)
	}

	f.err = errors.New("controller gone")
	if err := a.Apply(named(ad.TargetAdvertising, "two")); !errors.Is(err, f.err) {
		t.Errorf("Apply() error = %v, want wrapped setter error", err)
	}
}

func TestRotate(t *testing.T) {
	f := &fakeSetter{notify: make(chan struct{}, 16)}
	a := New(f, Config{RotateInterval: time.Millisecond})

	oversize := ad.Payload{Elements: []ad.Element{ad.NewElement(ad.TypeManufacturerData, make([]byte, 30))}}
	payloads := []ad.Payload{named(ad.TargetAdvertising, "a"), oversize, named(ad.TargetAdvertising, "b")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Rotate(ctx, payloads) }()
	for i := 0; i < 4; i++ {
		select {
		case <-f.notify:
		case <-time.After(time.Second):
			t.Fatalf("rotation stalled after %d payloads", i)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Rotate() = %v, want context.Canceled", err)
	}

	got := f.names()
	want := []string{"a", "b", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation order = %v, want prefix %v", got, want)
		}
	}
}

func TestRotateStopsOnSetterError(t *testing.T) {
	f := &fakeSetter{err: errors.New("hci down")}
	a := New(f, Config{RotateInterval: time.Millisecond})
	if err := a.Rotate(context.Background(), []ad.Payload{named(ad.TargetAdvertising, "a")}); !errors.Is(err, f.err) {
		t.Errorf("Rotate() = %v, want setter error", err)
	}
	if err := a.Rotate(context.Background(), nil); err == nil {
		t.Error("Rotate() accepted no payloads")
	}
}
