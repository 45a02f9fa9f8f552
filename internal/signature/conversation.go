package signature

import (
	"slices"
	"sync"
)

// MaxEntries bounds the signatures one conversation holds. Past it, the oldest entry is
// evicted first. Conversations that are never pruned, such as ones shared by fingerprint,
// stay bounded this way.
const MaxEntries = 512

// Conversation holds the signatures of one conversation.
// All methods are safe for concurrent use and treat a nil receiver as an empty conversation
// that caches nothing.
type Conversation struct {
	id     string
	policy Policy

	mu      sync.RWMutex
	entries map[Key]string
	order   []Key // insertion order of entries, oldest first
}

func newConversation(id string, policy Policy) *Conversation {
	return &Conversation{
		id:      id,
		policy:  policy,
		entries: make(map[Key]string),
	}
}

// ID returns the conversation id. Ephemeral conversations have an empty id.
func (c *Conversation) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// Policy returns the policy the conversation was opened with.
func (c *Conversation) Policy() Policy {
	if c == nil {
		return Policy{}
	}
	return c.policy
}

// Put stores token under key. Empty tokens and disabled categories are ignored.
func (c *Conversation) Put(key Key, token string) {
	if c == nil || token == "" || !c.policy.Caches(key.Category) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = token

	for len(c.order) > MaxEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Get returns the token stored under key.
func (c *Conversation) Get(key Key) (string, bool) {
	if c == nil || !c.policy.Caches(key.Category) {
		return "", false
	}

	c.mu.RLock()
	token, ok := c.entries[key]
	c.mu.RUnlock()
	return token, ok
}

// Retain drops every entry whose key is not in keep and returns how many were dropped.
func (c *Conversation) Retain(keep []Key) int {
	if c == nil {
		return 0
	}

	keepSet := make(map[Key]struct{}, len(keep))
	for _, k := range keep {
		keepSet[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.order)
	c.order = slices.DeleteFunc(c.order, func(k Key) bool {
		if _, ok := keepSet[k]; ok {
			return false
		}
		delete(c.entries, k)
		return true
	})
	return before - len(c.order)
}

// Len returns the number of stored entries.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Conversation) clear() {
	c.mu.Lock()
	clear(c.entries)
	c.order = nil
	c.mu.Unlock()
}
