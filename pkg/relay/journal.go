package relay

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/joripage/tradehook/pkg/relay/model"
	"github.com/shopspring/decimal"
)

// JournalEntry is the record of one submission attempt.
type JournalEntry struct {
	Time     time.Time
	ClOrdID  string
	Symbol   string
	Side     model.OrderSide
	Kind     model.OrderKind
	Quantity decimal.Decimal
	Status   model.OutcomeStatus
	OrderID  string
	Message  string
}

// Journal keeps a bounded, in-memory record of recent submission outcomes so
// an operator can reconcile indeterminate submissions against the
// brokerage's own order log. It does not survive a restart.
type Journal struct {
	mu       sync.Mutex
	entries  deque.Deque[JournalEntry]
	capacity int
}

const defaultJournalCapacity = 1024

func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = defaultJournalCapacity
	}
	return &Journal{capacity: capacity}
}

func (j *Journal) Record(e JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries.PushBack(e)
	for j.entries.Len() > j.capacity {
		j.entries.PopFront()
	}
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || n > j.entries.Len() {
		n = j.entries.Len()
	}
	out := make([]JournalEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, j.entries.At(j.entries.Len()-1-i))
	}
	return out
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries.Len()
}
