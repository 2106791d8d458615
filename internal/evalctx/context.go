// Package evalctx implements the Context tree from spec §4.3: the
// per-frame variable environment, the write-once return slot, and the
// append-only event log that LanguageEngine synthesis draws on.
package evalctx

import (
	"context"
	"sync"

	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// LanguageEngine is defined here, not in internal/engine, so that this
// package never needs to import an engine implementation: engine packages
// import evalctx and implement this interface instead.
type LanguageEngine interface {
	// Untyped performs the model-driven synthesis described in spec §4.6
	// for a call site with no declared return type information beyond
	// "produce a string", consulting the events visible from ctx.
	Untyped(ctx context.Context, ec *Context) (string, error)
	// Typed performs typed synthesis, producing a value.Value assignable
	// to want.
	Typed(ctx context.Context, ec *Context, want TypeDescriptor) (value.Value, error)
	// Select asks the engine to pick one of the given branch descriptions
	// and returns its zero-based index.
	Select(ctx context.Context, ec *Context, descriptions []string) (int, error)
}

// TypeDescriptor is the minimal type information an engine needs to
// perform typed synthesis, decoupled from internal/types to avoid a
// dependency from evalctx onto the checker's type representation.
type TypeDescriptor struct {
	Name string // "Unit" | "Boolean" | "String" | "List" | "Option"
	Elem *TypeDescriptor
}

// Event is one entry in a Context's append-only event log, produced by an
// Injection statement (`expr!`).
type Event struct {
	Name    *string
	Content value.Value
}

// Host exposes the collaborators a running Context tree needs beyond its
// own state: the active LanguageEngine.
type Host interface {
	Engine() LanguageEngine
}

// Context is one node of the tree described in spec §4.3. A frame-root
// Context is created once per function invocation; non-root children are
// created for if-bodies, while-iterations, and select-clauses.
type Context struct {
	mu sync.Mutex

	vars   map[string]value.Value
	events []Event

	parent      *Context
	isFrameRoot bool

	returnValue value.Value
	returnSet   bool

	host Host
}

// NewFrameRoot starts a new function-call frame with no parent variable
// visibility beyond what params seeds.
func NewFrameRoot(host Host, params map[string]value.Value) *Context {
	vars := make(map[string]value.Value, len(params))
	for k, v := range params {
		vars[k] = v
	}
	return &Context{vars: vars, isFrameRoot: true, host: host}
}

// NewChild starts a non-root child scope (if-body, while-iteration,
// select-clause) that can see parent's variables but does not start a new
// frame boundary.
func NewChild(parent *Context) *Context {
	return &Context{vars: make(map[string]value.Value), parent: parent, host: parent.host}
}

// Host returns the owning Host (engine, registry, ...).
func (c *Context) Host() Host { return c.host }

// Declare binds name to v in c's own scope (let).
func (c *Context) Declare(name string, v value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[name] = v
}

// Lookup resolves name per OQ-1: reads stop at the frame boundary, i.e. a
// lookup started inside a function body never sees an enclosing call's
// locals.
func (c *Context) Lookup(name string) (value.Value, bool) {
	cur := c
	for cur != nil {
		cur.mu.Lock()
		v, ok := cur.vars[name]
		boundary := cur.isFrameRoot
		cur.mu.Unlock()
		if ok {
			return v, true
		}
		if boundary {
			return nil, false
		}
		cur = cur.parent
	}
	return nil, false
}

// Assign rebinds the nearest enclosing declaration of name, per OQ-1's same
// stop-at-frame-boundary rule applied to writes. It reports whether name
// was found.
func (c *Context) Assign(name string, v value.Value) bool {
	cur := c
	for cur != nil {
		cur.mu.Lock()
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			cur.mu.Unlock()
			return true
		}
		boundary := cur.isFrameRoot
		cur.mu.Unlock()
		if boundary {
			return false
		}
		cur = cur.parent
	}
	return false
}

// Inject appends an (possibly unnamed) event to c's own log.
func (c *Context) Inject(name *string, content value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Name: name, Content: content})
}

// OwnEvents returns a copy of c's own event log (not including ancestors).
func (c *Context) OwnEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// PropagateTo appends c's own events onto parent's log. Every non-root
// child context (if-body, while-iteration, select-clause) calls this on
// its parent when it finishes evaluating, per spec §4.7: events raised in
// a nested scope remain visible to the enclosing frame after the nested
// scope closes.
func (c *Context) PropagateTo(parent *Context) {
	owned := c.OwnEvents()
	if len(owned) == 0 {
		return
	}
	parent.mu.Lock()
	parent.events = append(parent.events, owned...)
	parent.mu.Unlock()
}

// VisibleEvents walks from ctx up through its ancestor chain (without
// crossing a frame boundary backwards — a frame root's own log already
// holds everything propagated up to it) and returns every event visible
// to an engine call made at ctx, oldest first.
func VisibleEvents(ctx *Context) []value.Value {
	var chain []*Context
	for cur := ctx; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
		if cur.isFrameRoot {
			break
		}
	}
	var out []value.Value
	for i := len(chain) - 1; i >= 0; i-- {
		for _, ev := range chain[i].OwnEvents() {
			out = append(out, ev.Content)
		}
	}
	return out
}

// SetReturn writes the frame's return slot. It is write-once: subsequent
// calls are no-ops, matching "the first executed return statement wins"
// (early-return short-circuits the rest of the body).
func (c *Context) SetReturn(v value.Value) {
	root := c.frameRoot()
	root.mu.Lock()
	defer root.mu.Unlock()
	if !root.returnSet {
		root.returnValue = v
		root.returnSet = true
	}
}

// IsReturnSet reports whether the enclosing frame already has a return
// value, used by the evaluator to short-circuit remaining statements.
func (c *Context) IsReturnSet() bool {
	root := c.frameRoot()
	root.mu.Lock()
	defer root.mu.Unlock()
	return root.returnSet
}

// ReturnValue reads the enclosing frame's return slot.
func (c *Context) ReturnValue() (value.Value, bool) {
	root := c.frameRoot()
	root.mu.Lock()
	defer root.mu.Unlock()
	return root.returnValue, root.returnSet
}

// HasAnyEvents reports whether the frame root (after propagation from all
// its descendants) has accumulated any events, the OQ-2 trigger condition
// for typed synthesis at function-body completion.
func HasAnyEvents(frameRoot *Context) bool {
	frameRoot.mu.Lock()
	defer frameRoot.mu.Unlock()
	return len(frameRoot.events) > 0
}

func (c *Context) frameRoot() *Context {
	cur := c
	for !cur.isFrameRoot && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}
