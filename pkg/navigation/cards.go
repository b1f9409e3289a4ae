package navigation

import (
	"math"
	"sync"
	"time"
)

// HoverBreakpoint is the viewport width above which hovering flips a card.
const HoverBreakpoint = 768

// CardAriaLabel is announced for every flippable card.
const CardAriaLabel = "Click to flip card and see more details"

// CardDeck holds the flipped state of the benefit cards.
type CardDeck struct {
	mu      sync.Mutex
	flipped []bool
}

// NewCardDeck returns a deck of n unflipped cards. A negative n yields an
// empty deck.
func NewCardDeck(n int) *CardDeck {
	return &CardDeck{flipped: make([]bool, max(n, 0))}
}

func (d *CardDeck) valid(i int) bool {
	return i >= 0 && i < len(d.flipped)
}

// Click toggles card i.
func (d *CardDeck) Click(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid(i) {
		return false
	}
	d.flipped[i] = !d.flipped[i]
	return d.flipped[i]
}

// Key toggles card i on Enter or Space and reports whether the key was
// consumed.
func (d *CardDeck) Key(i int, key string) bool {
	if key != "Enter" && key != " " {
		return false
	}
	d.Click(i)
	return true
}

// HoverEnter flips card i on wide viewports.
func (d *CardDeck) HoverEnter(i int, viewportWidth float64) {
	d.setHover(i, viewportWidth, true)
}

// HoverLeave unflips card i on wide viewports.
func (d *CardDeck) HoverLeave(i int, viewportWidth float64) {
	d.setHover(i, viewportWidth, false)
}

func (d *CardDeck) setHover(i int, viewportWidth float64, flipped bool) {
	if viewportWidth <= HoverBreakpoint {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.valid(i) {
		d.flipped[i] = flipped
	}
}

// Flipped reports whether card i shows its back face.
func (d *CardDeck) Flipped(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valid(i) && d.flipped[i]
}

// RippleDuration is how long a ripple stays attached to its button.
const RippleDuration = 600 * time.Millisecond

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Left, Top, Width, Height float64
}

// RippleSpec positions a ripple inside a clicked button.
type RippleSpec struct {
	Size     float64       `json:"size"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Lifetime time.Duration `json:"lifetime"`
}

// Ripple returns the ripple for a click at (clientX, clientY) on a button
// occupying rect. The ripple is a circle centred on the click.
func Ripple(rect Rect, clientX, clientY float64) RippleSpec {
	size := math.Max(rect.Width, rect.Height)
	return RippleSpec{
		Size:     size,
		X:        clientX - rect.Left - size/2,
		Y:        clientY - rect.Top - size/2,
		Lifetime: RippleDuration,
	}
}

// RevealThreshold is the visible fraction at which an element is revealed.
const RevealThreshold = 0.1

// RevealTracker records which animated elements have scrolled into view.
// Reveal is one-way: elements never hide again.
type RevealTracker struct {
	mu       sync.Mutex
	revealed map[string]bool
}

// NewRevealTracker tracks the given element ids, all initially hidden.
func NewRevealTracker(ids ...string) *RevealTracker {
	r := &RevealTracker{revealed: make(map[string]bool, len(ids))}
	for _, id := range ids {
		r.revealed[id] = false
	}
	return r
}

// Observe reports an intersection ratio for id and returns whether the
// element is now revealed. Unknown ids are ignored.
func (r *RevealTracker) Observe(id string, ratio float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was, ok := r.revealed[id]
	if !ok {
		return false
	}
	if !was && ratio >= RevealThreshold {
		r.revealed[id] = true
	}
	return r.revealed[id]
}

// Pending returns the number of tracked elements not yet revealed.
func (r *RevealTracker) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.revealed {
		if !v {
			n++
		}
	}
	return n
}
