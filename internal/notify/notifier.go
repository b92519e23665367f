// Package notify queues the transient messages the SPA shows as toasts.
package notify

import "sync"

// Channel separates error toasts from success toasts.
type Channel string

const (
	Error   Channel = "error"
	Success Channel = "success"
)

// Notice is one message ready for display.
type Notice struct {
	Channel Channel `json:"channel"`
	Message string  `json:"message"`
}

// State is the serialisable form of a Notifier.
type State struct {
	Epoch     uint64             `json:"epoch"`
	Pending   []Notice           `json:"pending,omitempty"`
	LastShown map[Channel]string `json:"lastShown,omitempty"`
}

// Notifier holds pending notices for one browser.  Each notice is tagged
// with the epoch that was current when the work producing it started; Reset
// advances the epoch, so results of requests begun under a torn-down
// session are silently dropped.  A message equal to the last one shown on
// the same channel is not shown again until Reset.
type Notifier struct {
	mu      sync.Mutex
	epoch   uint64
	pending []Notice
	last    map[Channel]string
}

// New returns an empty notifier at epoch zero.
func New() *Notifier { return &Notifier{last: map[Channel]string{}} }

// FromState rebuilds a notifier saved with State.
func FromState(st State) *Notifier {
	n := &Notifier{epoch: st.Epoch, pending: append([]Notice(nil), st.Pending...), last: map[Channel]string{}}
	for ch, msg := range st.LastShown {
		n.last[ch] = msg
	}
	return n
}

// Epoch returns the current epoch.  Capture it before starting work whose
// outcome will be reported later.
func (n *Notifier) Epoch() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.epoch
}

// Push queues msg on ch.  It returns false, and queues nothing, when msg is
// empty or epoch is stale.
func (n *Notifier) Push(epoch uint64, ch Channel, msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg == "" || epoch != n.epoch {
		return false
	}
	n.pending = append(n.pending, Notice{Channel: ch, Message: msg})
	return true
}

// PushError and PushSuccess are shorthands for Push at the current epoch.
func (n *Notifier) PushError(msg string) bool   { return n.Push(n.Epoch(), Error, msg) }
func (n *Notifier) PushSuccess(msg string) bool { return n.Push(n.Epoch(), Success, msg) }

// Drain returns the notices to display now and clears the queue.
func (n *Notifier) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, 0, len(n.pending))
	for _, nt := range n.pending {
		if n.last[nt.Channel] == nt.Message {
			continue
		}
		n.last[nt.Channel] = nt.Message
		out = append(out, nt)
	}
	n.pending = nil
	return out
}

// Reset drops pending notices and the duplicate guard and starts a new epoch.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.epoch++
	n.pending = nil
	n.last = map[Channel]string{}
}

// ResetTo is Reset with an epoch chosen by the caller.  It is used when the
// epoch is shared with other requests of the same browser.
func (n *Notifier) ResetTo(epoch uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.epoch = epoch
	n.pending = nil
	n.last = map[Channel]string{}
}

// State snapshots the notifier for persistence.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := State{Epoch: n.epoch, Pending: append([]Notice(nil), n.pending...)}
	if len(n.last) > 0 {
		st.LastShown = make(map[Channel]string, len(n.last))
		for ch, msg := range n.last {
			st.LastShown[ch] = msg
		}
	}
	return st
}
