// Package mem tracks logical byte usage across the compiler front-end and
// enforces a configured ceiling. Every stage — lexer, parser, symbol table —
// reports its allocations through a single Accountant instance rather than
// relying on the Go runtime's own bookkeeping, so the pipeline's memory
// behavior matches the budget a constrained embedded front-end would see.
package mem

import "fmt"

const headerOverhead = 16 // simulated {size, next} block header, as in the original C allocator

// block is a logical allocation record. It mirrors the BlockHeader the
// original allocator prefixed to every pointer; here it is just bookkeeping,
// since Go has no manual free.
type block struct {
	size uint64
	next *block
}

// Handle is an opaque reference to a logical allocation. Callers hold on to
// it only long enough to Free or Realloc it.
type Handle struct {
	b *block
}

// Accountant tracks current and peak logical usage against an optional
// ceiling. The zero value is not usable; construct one with New.
type Accountant struct {
	limit   uint64
	current uint64
	peak    uint64
	head    *block
	warned  bool // latched once usage has crossed the 90% threshold
	closed  bool
}

// New returns an Accountant ceilinged at limit bytes. A limit of 0 means
// unbounded — the ceiling and warning checks never fire.
func New(limit uint64) *Accountant {
	return &Accountant{limit: limit}
}

// ErrMemoryExhausted is returned by Alloc/Realloc when an allocation would
// push current usage strictly above the configured limit.
type ErrMemoryExhausted struct {
	Requested uint64
	Current   uint64
	Limit     uint64
}

func (e *ErrMemoryExhausted) Error() string {
	return fmt.Sprintf("Memória Insuficiente (pedido %d, uso atual %d, limite %d)", e.Requested, e.Current, e.Limit)
}

// Warning is returned alongside a successful allocation when usage enters
// the band from 90% of the limit up to the limit. It is not repeated while
// usage stays in that band, and fires again on a later entry after usage has
// left it. It is informational, not an error.
type Warning struct {
	Current uint64
	Limit   uint64
}

func (w *Warning) Error() string {
	return "Alerta: uso de memória entre 90% e 99%"
}

// Alloc records a logical allocation of size bytes, returning a Handle used
// to Free or Realloc it later. It fails fatally (ErrMemoryExhausted) if the
// post-allocation usage would strictly exceed the limit.
func (a *Accountant) Alloc(size uint64) (*Handle, error) {
	total := headerOverhead + size
	if err := a.check(a.current + total); err != nil {
		return nil, err
	}
	b := &block{size: size, next: a.head}
	a.head = b
	a.current += total
	a.bumpPeak()
	w := a.crossed90()
	h := &Handle{b: b}
	if w != nil {
		return h, w
	}
	return h, nil
}

// Realloc resizes the allocation behind h to newSize, charging or crediting
// only the delta. A nil Handle behaves like Alloc(newSize). Shrinking never
// fails the ceiling check; growing checks the delta the same way Alloc does.
func (a *Accountant) Realloc(h *Handle, newSize uint64) (*Handle, error) {
	if h == nil {
		return a.Alloc(newSize)
	}
	oldTotal := headerOverhead + h.b.size
	newTotal := headerOverhead + newSize
	if newTotal > oldTotal {
		if err := a.check(a.current + (newTotal - oldTotal)); err != nil {
			return h, err
		}
	}
	h.b.size = newSize
	if newTotal >= oldTotal {
		a.current += newTotal - oldTotal
	} else {
		a.current -= oldTotal - newTotal
	}
	a.bumpPeak()
	if w := a.crossed90(); w != nil {
		return h, w
	}
	return h, nil
}

// Free releases the allocation behind h, unlinking it from the live-block
// list and crediting its size back to current usage.
func (a *Accountant) Free(h *Handle) {
	if h == nil {
		return
	}
	total := headerOverhead + h.b.size
	if a.head == h.b {
		a.head = h.b.next
	} else {
		for p := a.head; p != nil; p = p.next {
			if p.next == h.b {
				p.next = h.b.next
				break
			}
		}
	}
	if total <= a.current {
		a.current -= total
	} else {
		a.current = 0
	}
}

// CurrentUsage returns the live logical byte total.
func (a *Accountant) CurrentUsage() uint64 { return a.current }

// PeakUsage returns the highest current usage ever observed.
func (a *Accountant) PeakUsage() uint64 { return a.peak }

// Limit returns the configured ceiling (0 means unbounded).
func (a *Accountant) Limit() uint64 { return a.limit }

// Cleanup frees every live block and resets the tally. It must be the last
// operation performed before the driver exits and must not be re-entered.
func (a *Accountant) Cleanup() error {
	if a.closed {
		return fmt.Errorf("mem: cleanup called twice on the same accountant")
	}
	a.head = nil
	a.current = 0
	a.closed = true
	return nil
}

func (a *Accountant) check(newCurrent uint64) error {
	if a.limit > 0 && newCurrent > a.limit {
		return &ErrMemoryExhausted{Requested: newCurrent - a.current, Current: a.current, Limit: a.limit}
	}
	return nil
}

func (a *Accountant) bumpPeak() {
	if a.current > a.peak {
		a.peak = a.current
	}
}

func (a *Accountant) crossed90() error {
	if a.limit == 0 {
		return nil
	}
	threshold := (a.limit * 9) / 10
	if a.current >= threshold && a.current < a.limit {
		if !a.warned {
			a.warned = true
			return &Warning{Current: a.current, Limit: a.limit}
		}
		return nil
	}
	// usage dropped back below the threshold; allow the warning to re-fire
	// on the next transition across it.
	a.warned = false
	return nil
}
