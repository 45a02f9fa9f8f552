package signature

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the number of live conversations a Registry keeps when none is configured.
const DefaultCapacity = 1024

// Registry owns the live conversations of the process.
// The registry lock only guards the conversation table; entries of disjoint conversations are
// guarded by their own locks and never contend.
type Registry struct {
	policy   Policy
	capacity int

	mu            sync.Mutex
	conversations map[string]*list.Element
	recency       *list.List // front = most recently opened
}

// NewRegistry creates a registry that keeps at most capacity conversations.
// A capacity <= 0 selects DefaultCapacity.
func NewRegistry(policy Policy, capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		policy:        policy,
		capacity:      capacity,
		conversations: make(map[string]*list.Element),
		recency:       list.New(),
	}
}

// Policy returns the policy every conversation is opened with.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Open returns the conversation for id, creating it if needed, and marks it most recently
// used. An empty id yields an ephemeral conversation that is not tracked by the registry and
// disappears with the request.
func (r *Registry) Open(id string) *Conversation {
	if id == "" {
		return newConversation("", r.policy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.conversations[id]; ok {
		r.recency.MoveToFront(el)
		return el.Value.(*Conversation)
	}

	conv := newConversation(id, r.policy)
	r.conversations[id] = r.recency.PushFront(conv)

	for r.recency.Len() > r.capacity {
		oldest := r.recency.Back()
		evicted := r.recency.Remove(oldest).(*Conversation)
		delete(r.conversations, evicted.id)
		evicted.clear()
	}

	return conv
}

// Discard drops the conversation and all its entries. It reports whether id was known.
// Holders of the discarded *Conversation keep a valid but emptied object.
func (r *Registry) Discard(id string) bool {
	r.mu.Lock()
	el, ok := r.conversations[id]
	if ok {
		r.recency.Remove(el)
		delete(r.conversations, id)
	}
	r.mu.Unlock()

	if ok {
		el.Value.(*Conversation).clear()
	}
	return ok
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recency.Len()
}
