package signature

// Pending buffers signatures observed while a response is still in flight.
// A later observation for the same key replaces the earlier one. Pending belongs to a single
// response stream and is not safe for concurrent use.
type Pending struct {
	entries map[Key]string
}

// Observe records token for key. Empty tokens are ignored.
func (p *Pending) Observe(key Key, token string) {
	if token == "" {
		return
	}
	if p.entries == nil {
		p.entries = make(map[Key]string)
	}
	p.entries[key] = token
}

// Commit writes all buffered signatures to conv, empties the buffer and returns the number of
// signatures handed over.
func (p *Pending) Commit(conv *Conversation) int {
	n := len(p.entries)
	for key, token := range p.entries {
		conv.Put(key, token)
	}
	p.Reset()
	return n
}

// Reset drops everything buffered.
func (p *Pending) Reset() {
	clear(p.entries)
}

// Len returns the number of buffered signatures.
func (p *Pending) Len() int {
	return len(p.entries)
}
