package directory

import (
	"sync"
	"time"
)

type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Status is the transient notification shown after an operation.
type Status struct {
	Visible bool   `json:"visible"`
	State   State  `json:"status"`
	Message string `json:"message"`
}

var hiddenStatus = Status{State: StatePending}

// notifier holds the current status and clears finished ones after a fixed
// delay. A timer only clears the status it was armed for.
type notifier struct {
	mu         sync.Mutex
	cur        Status
	gen        uint64
	timer      *time.Timer
	successTTL time.Duration
	errorTTL   time.Duration
}

func newNotifier(successTTL, errorTTL time.Duration) *notifier {
	return &notifier{cur: hiddenStatus, successTTL: successTTL, errorTTL: errorTTL}
}

func (n *notifier) set(state State, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.cur = Status{Visible: true, State: state, Message: msg}

	var ttl time.Duration
	switch state {
	case StateSuccess:
		ttl = n.successTTL
	case StateError:
		ttl = n.errorTTL
	}
	if ttl > 0 {
		gen := n.gen
		n.timer = time.AfterFunc(ttl, func() { n.clear(gen) })
	}
}

func (n *notifier) clear(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.gen == gen {
		n.cur = hiddenStatus
		n.timer = nil
	}
}

func (n *notifier) get() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cur
}

func (n *notifier) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
