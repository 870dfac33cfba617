package cansim

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// testConfig disables pacing so full frames replay without real
// elapsed time.
func testConfig() Config {
	return Config{
		BitTime:      0,
		PollInterval: 5 * time.Millisecond,
		StopTimeout:  time.Second,
	}
}

func waitHistory(t *testing.T, bus *Bus, want int) []Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h := bus.History(); len(h) >= want {
			return h
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d transmitted frames, have %d", want, len(bus.History()))
	return nil
}

func TestBus_TransmitsInOrder(t *testing.T) {
	bus := New(testConfig())
	bus.Start()
	defer bus.Stop()

	f1 := MustFrame(0x100, []byte{1})
	f2 := MustFrame(0x200, []byte{2})
	f3 := MustFrame(0x1ABCDEFF, []byte{3})
	bus.Enqueue(f1)
	bus.Enqueue(f2)
	bus.Enqueue(f3)

	h := waitHistory(t, bus, 3)
	if h[0] != f1 || h[1] != f2 || h[2] != f3 {
		t.Fatalf("history out of order: %v", h)
	}
	if bus.Level() != Recessive {
		t.Fatalf("bus should idle recessive after transmission, got %v", bus.Level())
	}
}

func TestBus_HistoryIsSnapshot(t *testing.T) {
	bus := New(testConfig())
	bus.Start()
	defer bus.Stop()

	bus.Enqueue(MustFrame(0x1, nil))
	h := waitHistory(t, bus, 1)
	h[0] = Frame{}
	if got := bus.History(); got[0].ID != 0x1 {
		t.Fatalf("mutating a snapshot must not touch the history")
	}
}

func TestBus_IdleLevelAndStop(t *testing.T) {
	bus := New(testConfig())
	if bus.Level() != Recessive {
		t.Fatalf("new bus should idle recessive")
	}
	if bus.LevelName() != "HIGH (recessive)" {
		t.Fatalf("level name = %q", bus.LevelName())
	}
	bus.Start()

	stopped := make(chan struct{})
	go func() {
		bus.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(bus.cfg.StopTimeout + time.Second):
		t.Fatalf("Stop did not return within the stop timeout")
	}
}

func TestBus_StartStopIdempotent(t *testing.T) {
	bus := New(testConfig())
	bus.Start()
	bus.Start() // no-op
	bus.Enqueue(MustFrame(0x42, []byte{0xAA}))
	waitHistory(t, bus, 1)
	bus.Stop()
	bus.Stop()  // no-op
	bus.Start() // no-op after Stop
	if got := len(bus.History()); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
}

func TestBus_TracePacesEveryBit(t *testing.T) {
	var bits atomic.Int64
	cfg := testConfig()
	cfg.Trace = func(n int, level Level) { bits.Add(1) }

	bus := New(cfg)
	bus.Start()
	defer bus.Stop()

	f := MustFrame(0x123, []byte{0xDE, 0xAD})
	bus.Enqueue(f)
	waitHistory(t, bus, 1)

	if want := int64(len(f.WireBits())); bits.Load() != want {
		t.Fatalf("trace saw %d bits, want %d", bits.Load(), want)
	}
}

func TestBus_SubscribeFiltering(t *testing.T) {
	bus := New(testConfig())
	bus.Start()

	chA, cancelA := bus.Subscribe(ByID(0x100), 1)
	chB, cancelB := bus.Subscribe(ByRange(0x200, 0x2FF), 2)
	defer cancelB()

	bus.Enqueue(MustFrame(0x100, []byte{1})) // should go to A
	bus.Enqueue(MustFrame(0x210, []byte{2})) // should go to B
	bus.Enqueue(MustFrame(0x105, []byte{3})) // should go to no one

	select {
	case f := <-chA:
		if f.ID != 0x100 {
			t.Fatalf("A got %03X", f.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for A")
	}
	select {
	case f := <-chB:
		if f.ID != 0x210 {
			t.Fatalf("B got %03X", f.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for B")
	}

	waitHistory(t, bus, 3)
	select {
	case f := <-chA:
		t.Fatalf("A should be empty, got %03X", f.ID)
	default:
	}

	cancelA()
	if _, ok := <-chA; ok {
		t.Fatalf("A should be closed after cancel")
	}

	// Stop closes the remaining subscriber channels.
	bus.Stop()
	for {
		if _, ok := <-chB; !ok {
			break
		}
	}
}

func TestBus_SubscribeDropsOnFullBuffer(t *testing.T) {
	bus := New(testConfig())
	bus.Start()
	defer bus.Stop()

	ch, cancel := bus.Subscribe(ByID(0x100), 1)
	defer cancel()

	// More matching frames than the buffer holds: overflow is dropped,
	// never blocking the transmit loop.
	f1 := MustFrame(0x100, []byte{1})
	f2 := MustFrame(0x100, []byte{2})
	f3 := MustFrame(0x100, []byte{3})
	bus.Enqueue(f1)
	bus.Enqueue(f2)
	bus.Enqueue(f3)

	h := waitHistory(t, bus, 3)
	if h[0] != f1 || h[1] != f2 || h[2] != f3 {
		t.Fatalf("history out of order: %v", h)
	}

	select {
	case f := <-ch:
		if f != f1 {
			t.Fatalf("subscriber got %v, want the first frame", f)
		}
	default:
		t.Fatalf("subscriber should hold the first frame")
	}
	select {
	case f := <-ch:
		t.Fatalf("overflow frame %v should have been dropped", f)
	default:
	}
}

func TestBus_SubscribeAfterStop(t *testing.T) {
	bus := New(testConfig())
	bus.Start()
	bus.Stop()

	ch, cancel := bus.Subscribe(nil, 1)
	if _, ok := <-ch; ok {
		t.Fatalf("subscription on a stopped bus should be closed")
	}
	cancel() // must be safe to call
}

func ExampleBus() {
	bus := New(Config{BitTime: 0})
	bus.Start()
	defer bus.Stop()

	done, cancel := bus.Subscribe(nil, 1)
	defer cancel()

	bus.Enqueue(MustFrame(0x123, []byte("hi")))
	f := <-done
	fmt.Printf("ID=%03X LEN=%d DATA=%x LEVEL=%s\n", f.ID, f.Len, f.Data[:f.Len], bus.LevelName())
	// Output: ID=123 LEN=2 DATA=6869 LEVEL=HIGH (recessive)
}
