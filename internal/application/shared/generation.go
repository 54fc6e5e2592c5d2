// Package shared holds application-layer helpers used by the stores.
package shared

import (
	"context"
	"sync"
)

// Generation tags asynchronous requests with the identity epoch they were
// issued for. Advancing the generation cancels every request joined to the
// previous one and makes their tickets invalid, so late completions can be
// recognised and dropped.
//
// The zero value is ready to use.
type Generation struct {
	mu     sync.Mutex
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Ticket identifies the generation a request was issued in
type Ticket struct {
	g   *Generation
	seq uint64
}

// Valid reports whether the generation has not advanced since the ticket was
// issued. Callers that apply a result must hold the lock that also guards
// Advance, otherwise the answer may be outdated by the time it is used.
func (t Ticket) Valid() bool {
	if t.g == nil {
		return false
	}
	return t.g.Current() == t.seq
}

// Seq returns the generation number of the ticket
func (t Ticket) Seq() uint64 {
	return t.seq
}

// Current returns the current generation number
func (g *Generation) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Advance starts a new generation and cancels requests of the previous one
func (g *Generation) Advance() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.seq++
	g.ctx, g.cancel = context.WithCancel(context.Background())
	return Ticket{g: g, seq: g.seq}
}

// Join derives a request context from parent that is also cancelled when the
// generation advances. The returned stop func must be called once the request
// completes.
func (g *Generation) Join(parent context.Context) (context.Context, Ticket, context.CancelFunc) {
	g.mu.Lock()
	if g.ctx == nil {
		g.ctx, g.cancel = context.WithCancel(context.Background())
	}
	genCtx, seq := g.ctx, g.seq
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	detach := context.AfterFunc(genCtx, cancel)
	return ctx, Ticket{g: g, seq: seq}, func() {
		detach()
		cancel()
	}
}

// Begin advances the generation and joins the new one
func (g *Generation) Begin(parent context.Context) (context.Context, Ticket, context.CancelFunc) {
	g.Advance()
	return g.Join(parent)
}
