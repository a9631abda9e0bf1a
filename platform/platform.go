// Package platform holds the ambient glue the engine runs on: a
// millisecond tick counter and an entropy source, mirroring the
// original source's SysTick-driven counter and RNG hook without tying
// this module to any one runtime's internals.
package platform

import "sync/atomic"

// Ticker is a free-running millisecond counter. The real platform
// increments it from a timer interrupt (as main.rs's SysTick exception
// does via increase_counter); Tick is safe to call from that context
// since it only does an atomic add.
type Ticker struct {
	ms atomic.Uint32
}

// Tick advances the counter by one millisecond.
func (t *Ticker) Tick() {
	t.ms.Add(1)
}

// Now returns the current millisecond count.
func (t *Ticker) Now() uint32 {
	return t.ms.Load()
}

// EntropySource fills b with random bytes. The real platform supplies a
// hardware RNG; NewLCGFallback below builds a software one for platforms
// that have none. Nothing in this package selects it automatically.
type EntropySource func(b []byte)

// lcg is a Linear Congruential Generator fallback entropy source,
// grounded on the teacher's internal/rng.GetLCGData but without its
// runtime.getRandomData //go:linkname hook, which is specific to the
// TamaGo-patched Go runtime this module does not assume.
type lcg struct {
	state uint32
}

// NewLCGFallback seeds an LCG-based EntropySource. Not cryptographically
// secure; only used when platform code has no hardware RNG to offer.
func NewLCGFallback(seed uint32) EntropySource {
	g := &lcg{state: seed}
	if g.state == 0 {
		g.state = 1
	}
	return g.fill
}

func (g *lcg) fill(b []byte) {
	i := 0
	for i < len(b) {
		g.state = (1103515245*g.state + 12345) % (1 << 31)
		shift := 0
		for i < len(b) && shift <= 24 {
			b[i] = byte(g.state >> shift)
			i++
			shift += 8
		}
	}
}

// PerfCounter tracks loops-per-second for the HTTP /stats endpoint,
// mirroring main.rs's finalize_perfcounter (a count reset once per
// second, driven by the same tick counter as the main loop).
type PerfCounter struct {
	ticker       *Ticker
	count        uint32
	lastLoopTime uint32
	lastLPS      atomic.Uint32
	OnSecond     func() // called once per elapsed second, e.g. to toggle an LED

	// ReadTemperature, when set, backs TemperatureC. No temperature
	// sensor driver is in scope for this module; platform code wires a
	// real one in by setting this field.
	ReadTemperature TemperatureSource
}

// TemperatureSource reads the current board temperature in Celsius.
type TemperatureSource func() float32

func NewPerfCounter(ticker *Ticker) *PerfCounter {
	return &PerfCounter{ticker: ticker}
}

// Tick is called once per main-loop iteration.
func (p *PerfCounter) Tick() {
	now := p.ticker.Now()
	p.count++
	if now-p.lastLoopTime >= 1000 {
		p.lastLPS.Store(p.count)
		p.count = 0
		p.lastLoopTime = now
		if p.OnSecond != nil {
			p.OnSecond()
		}
	}
}

// LoopsPerSecond implements httpapp.Stats.
func (p *PerfCounter) LoopsPerSecond() uint32 {
	return p.lastLPS.Load()
}

// TemperatureC implements httpapp.Stats.
func (p *PerfCounter) TemperatureC() float32 {
	if p.ReadTemperature != nil {
		return p.ReadTemperature()
	}
	return 0
}
