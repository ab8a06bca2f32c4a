package wsclient

import "sync"

// EntryRole identifies who produced a conversation entry.
type EntryRole string

const (
	RoleUser      EntryRole = "user"
	RoleAssistant EntryRole = "assistant"
	RoleError     EntryRole = "error"
)

// Entry is one item in the aggregated conversation view.
type Entry struct {
	ID        string
	Role      EntryRole
	Text      string
	Streaming bool
}

// Aggregator collects streamed assistant tokens into ordered conversation
// entries. All methods are safe for concurrent use; the reader loop appends
// while the UI snapshots.
type Aggregator struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
	done    map[string]bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		index: make(map[string]int),
		done:  make(map[string]bool),
	}
}

// AppendSent records an outgoing user message and seeds an empty streaming
// assistant entry under the same correlation id.
func (a *Aggregator) AppendSent(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, Entry{ID: id, Role: RoleUser, Text: text})
	a.entries = append(a.entries, Entry{ID: id, Role: RoleAssistant, Streaming: true})
	a.index[id] = len(a.entries) - 1
}

// AppendToken appends one streamed chunk to the assistant entry for id.
// Tokens arriving after the entry was finalized are dropped.
func (a *Aggregator) AppendToken(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done[id] {
		return
	}
	i, ok := a.index[id]
	if !ok {
		a.entries = append(a.entries, Entry{ID: id, Role: RoleAssistant, Streaming: true})
		i = len(a.entries) - 1
		a.index[id] = i
	}
	a.entries[i].Text += text
}

// Finalize marks the assistant entry for id complete. When the server sent
// authoritative full text it replaces the accumulated tokens; an empty text
// keeps what was accumulated. Repeated completions are no-ops.
func (a *Aggregator) Finalize(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done[id] {
		return
	}
	i, ok := a.index[id]
	if !ok {
		a.entries = append(a.entries, Entry{ID: id, Role: RoleAssistant})
		i = len(a.entries) - 1
		a.index[id] = i
	}
	if text != "" {
		a.entries[i].Text = text
	}
	a.entries[i].Streaming = false
	a.done[id] = true
}

// AppendError records a server-side failure as its own entry. When the
// error correlates with an in-flight stream that stream is closed out.
func (a *Aggregator) AppendError(id, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id != "" {
		if i, ok := a.index[id]; ok && !a.done[id] {
			a.entries[i].Streaming = false
			a.done[id] = true
		}
	}
	a.entries = append(a.entries, Entry{ID: id, Role: RoleError, Text: msg})
}

// Entries returns a snapshot of the conversation in arrival order.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
