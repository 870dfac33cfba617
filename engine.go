package cansim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogOption is a bitmask selecting which engine events are logged.
type LogOption uint8

const (
	LogNone    LogOption = 0
	LogEnqueue LogOption = 1 << iota
	LogTransmit
	LogAll = LogEnqueue | LogTransmit
)

// TraceFunc observes each emitted bit: its 1-based position within the
// frame and the bus level it drove. It runs on the transmit goroutine,
// so it must not block for long.
type TraceFunc func(n int, level Level)

// Config holds the tunable parameters of a Bus.
type Config struct {
	// BitTime is the duration each bit occupies on the bus. Zero
	// disables pacing so tests can replay full frames instantly.
	BitTime time.Duration

	// PollInterval bounds how long the transmit loop waits for work
	// before rechecking the stop signal.
	PollInterval time.Duration

	// StopTimeout bounds how long Stop waits for the transmit loop to
	// exit. Stopping is best-effort: on timeout the loop may still be
	// finishing its last frame.
	StopTimeout time.Duration

	// Logger receives engine events selected by LogOpts. Defaults to a
	// no-op logger.
	Logger  zerolog.Logger
	LogOpts LogOption

	// Trace, if set, is invoked for every emitted bit.
	Trace TraceFunc
}

// DefaultConfig returns the parameters used by the interactive
// simulator: 20ms bit time, 100ms queue poll, 1s stop timeout.
func DefaultConfig() Config {
	return Config{
		BitTime:      20 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
		StopTimeout:  time.Second,
		Logger:       zerolog.Nop(),
	}
}

// Bus is a single simulated CAN bus instance. One background goroutine
// (started by Start) owns all transmission: it dequeues pending frames,
// replays their bits with real-time pacing, updates the bus level, and
// records completed frames. Any number of other goroutines may enqueue
// frames and read the level or history concurrently.
//
// A Bus is single-use: Start it once, Stop it once. Stop closes all
// subscriber channels.
type Bus struct {
	cfg    Config
	id     uuid.UUID
	logger zerolog.Logger

	level atomic.Uint32 // Level, written only by the transmit loop

	mu      sync.Mutex
	pending []Frame
	history []Frame
	started bool
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	subMu      sync.RWMutex
	subs       map[uint64]*subscriber
	subsClosed bool
	next       uint64
}

type subscriber struct {
	filter FrameFilter
	ch     chan Frame
}

// New creates a stopped Bus with the given configuration. Zero
// durations fall back to the defaults, except BitTime where zero is
// meaningful and kept.
func New(cfg Config) *Bus {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	b := &Bus{
		cfg:  cfg,
		id:   uuid.New(),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		subs: make(map[uint64]*subscriber),
	}
	b.logger = cfg.Logger.With().Str("bus", b.id.String()).Logger()
	b.level.Store(uint32(Recessive))
	return b
}

// ID returns the unique identity of this bus instance.
func (b *Bus) ID() uuid.UUID { return b.id }

// Start launches the background transmit loop. Calling Start again, or
// after Stop, is a no-op.
func (b *Bus) Start() {
	b.mu.Lock()
	if b.started || b.stopped {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()
	b.logger.Debug().Msg("bus started")
	go b.run()
}

// Stop signals the transmit loop to exit and waits for it, bounded by
// StopTimeout. The loop never abandons a frame mid-transmission, so on
// timeout it may still be driving the last bits of an in-flight frame.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	started := b.started
	b.mu.Unlock()

	close(b.stop)
	if started {
		select {
		case <-b.done:
		case <-time.After(b.cfg.StopTimeout):
			b.logger.Warn().Msg("bus stop timed out")
		}
	}
	b.closeSubscribers()
	b.logger.Debug().Msg("bus stopped")
}

// Enqueue appends the frame to the pending queue. It never blocks and
// never fails; the queue is unbounded. The frame must already be
// validated (NewFrame and ParseFrame guarantee this).
func (b *Bus) Enqueue(frame Frame) {
	b.mu.Lock()
	b.pending = append(b.pending, frame)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
	if b.cfg.LogOpts&LogEnqueue != 0 {
		b.logger.Info().Str("frame", frame.String()).Msg("frame queued")
	}
}

// History returns a snapshot copy of all fully transmitted frames in
// completion order.
func (b *Bus) History() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Frame, len(b.history))
	copy(out, b.history)
	return out
}

// Level returns the instantaneous bus level. The bus idles recessive
// between frames.
func (b *Bus) Level() Level {
	return Level(b.level.Load())
}

// LevelName returns the human label for the current bus level.
func (b *Bus) LevelName() string {
	return b.Level().String()
}

// Subscribe registers a channel that receives every frame whose
// transmission completes and matches the filter (nil matches all).
// Delivery is non-blocking: frames are dropped for subscribers whose
// buffer is full. The cancel function closes the channel; Stop closes
// all remaining subscriber channels. Subscribing on a stopped bus
// returns an already-closed channel.
func (b *Bus) Subscribe(filter FrameFilter, buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscriber{filter: filter, ch: make(chan Frame, buffer)}
	b.subMu.Lock()
	if b.subsClosed {
		b.subMu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = s
	b.subMu.Unlock()

	cancel := func() {
		b.subMu.Lock()
		if cur, ok := b.subs[id]; ok && cur == s {
			close(cur.ch)
			delete(b.subs, id)
		}
		b.subMu.Unlock()
	}
	return s.ch, cancel
}

func (b *Bus) closeSubscribers() {
	b.subMu.Lock()
	b.subsClosed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
	b.subMu.Unlock()
}

func (b *Bus) notify(frame Frame) {
	b.subMu.RLock()
	for _, s := range b.subs {
		if s.filter == nil || s.filter(frame) {
			select {
			case s.ch <- frame:
			default:
				// Drop if subscriber is slow and channel is full.
			}
		}
	}
	b.subMu.RUnlock()
}

func (b *Bus) dequeue() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return Frame{}, false
	}
	frame := b.pending[0]
	b.pending = b.pending[1:]
	return frame, true
}

// run is the transmit loop. Frames are transmitted strictly one at a
// time; the stop signal is only observed between frames or between
// poll attempts when idle.
func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		frame, ok := b.dequeue()
		if !ok {
			select {
			case <-b.stop:
				return
			case <-b.wake:
			case <-time.After(b.cfg.PollInterval):
			}
			continue
		}
		b.transmit(frame)
	}
}

func (b *Bus) transmit(frame Frame) {
	if b.cfg.LogOpts&LogTransmit != 0 {
		b.logger.Info().Str("frame", frame.String()).Msg("transmitting")
	}
	bits := frame.WireBits()
	for i, lvl := range bits {
		b.level.Store(uint32(lvl))
		if b.cfg.Trace != nil {
			b.cfg.Trace(i+1, lvl)
		}
		if b.cfg.BitTime > 0 {
			time.Sleep(b.cfg.BitTime)
		}
	}
	// Bus returns to idle after the frame.
	b.level.Store(uint32(Recessive))

	b.mu.Lock()
	b.history = append(b.history, frame)
	b.mu.Unlock()
	b.notify(frame)

	if b.cfg.LogOpts&LogTransmit != 0 {
		b.logger.Info().Str("frame", frame.String()).Int("bits", len(bits)).Msg("frame transmitted")
	}
}
