package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"relaymesh/pkg/access"
	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

// ErrAuthorizationCheckFailed reports a policy that errored instead of
// returning a verdict. The message is dropped, but the failure is
// surfaced as an error so a broken policy is never read as allow or deny.
var ErrAuthorizationCheckFailed = errors.New("authorization check failed")

// Handler processes messages a worker's policy has admitted.
type Handler interface {
	Handle(ctx context.Context, msg *model.LocalMessage) error
}

type HandlerFunc func(ctx context.Context, msg *model.LocalMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg *model.LocalMessage) error {
	return f(ctx, msg)
}

// Worker is a registered service: a mailbox, the policy gating it, and
// the handler draining it.
type Worker struct {
	address string
	policy  access.AccessControl
	handler Handler
	mailbox chan *model.LocalMessage
	done    chan struct{}
}

func (w *Worker) Address() string { return w.address }

// Registry owns the workers of one node and routes inbound messages to
// them. Every delivery consults the target worker's policy first.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*Worker
}

func NewRegistry() *Registry {
	return &Registry{workers: map[string]*Worker{}}
}

// Register adds a worker under a service address and starts its mailbox
// loop. A duplicate address is an error and leaves the registry
// untouched.
func (r *Registry) Register(address string, policy access.AccessControl, handler Handler) (*Worker, error) {
	if address == "" {
		return nil, fmt.Errorf("worker address must not be empty")
	}
	if policy == nil {
		policy = access.DenyAll{}
	}
	w := &Worker{
		address: address,
		policy:  policy,
		handler: handler,
		mailbox: make(chan *model.LocalMessage, 64),
		done:    make(chan struct{}),
	}
	r.mu.Lock()
	if _, exists := r.workers[address]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("worker %q already registered", address)
	}
	r.workers[address] = w
	r.mu.Unlock()
	go w.loop()
	return w, nil
}

// Deregister stops a worker and removes it.
func (r *Registry) Deregister(address string) {
	r.mu.Lock()
	w, ok := r.workers[address]
	if ok {
		delete(r.workers, address)
	}
	r.mu.Unlock()
	if ok {
		close(w.done)
	}
}

// Addresses returns the registered service addresses.
func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.workers))
	for a := range r.workers {
		out = append(out, a)
	}
	return out
}

// Deliver routes a message to the worker named by the first onward
// segment. The worker's policy decides: false drops the message, an
// error drops it and propagates as ErrAuthorizationCheckFailed. On allow
// the consumed segment moves to the front of the return route and the
// message is enqueued whole; there is no partial delivery.
func (r *Registry) Deliver(ctx context.Context, msg *model.LocalMessage) (bool, error) {
	if msg.OnwardRoute.Empty() {
		return false, fmt.Errorf("message has an empty onward route")
	}
	first, rest := msg.OnwardRoute.PopFirst()
	if first.Kind != addr.KindService {
		return false, fmt.Errorf("onward route %s does not start with a service segment", msg.OnwardRoute)
	}
	r.mu.RLock()
	w, ok := r.workers[first.Value]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("no worker at %q", first.Value)
	}

	allowed, err := w.policy.IsAuthorized(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("%w: worker %q: %v", ErrAuthorizationCheckFailed, first.Value, err)
	}
	if !allowed {
		log.Printf("message to %q dropped by policy", first.Value)
		return false, nil
	}

	delivered := &model.LocalMessage{
		OnwardRoute: rest,
		ReturnRoute: addr.New(first).Concat(msg.ReturnRoute),
		Identity:    msg.Identity,
		Payload:     msg.Payload,
	}
	select {
	case w.mailbox <- delivered:
		return true, nil
	case <-w.done:
		return false, fmt.Errorf("worker %q stopped", first.Value)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (w *Worker) loop() {
	for {
		select {
		case msg := <-w.mailbox:
			if w.handler == nil {
				continue
			}
			if err := w.handler.Handle(context.Background(), msg); err != nil {
				log.Printf("worker %q handler failed: %v", w.address, err)
			}
		case <-w.done:
			return
		}
	}
}
