package ledger

import (
	"encoding/binary"
	"hash/fnv"
	"time"

	"famledger/internal/cache"
	"famledger/internal/core"
	"famledger/internal/cycle"
	"famledger/internal/recurring"
)

// ChildSummary is what the per-child cards display.
//
// OneTimeTotal is settled spend inside the current billing cycle.
// RecurringTotal is the sum of the child's active templates: a monthly
// run-rate commitment, not spend to date. Labels must keep the two apart.
type ChildSummary struct {
	ChildID        string       `json:"childId"`
	Window         cycle.Window `json:"window"`
	OneTimeTotal   core.Money   `json:"oneTimeTotal"`
	RecurringTotal core.Money   `json:"recurringTotal"`
}

// SummarizeChild computes the totals for childID over the billing cycle
// containing now. An empty childID summarizes the shared rows.
func SummarizeChild(expenses []core.Expense, childID string, billingDay int, now time.Time) ChildSummary {
	w := cycle.WindowFor(now, billingDay)
	c := Classify(ForChild(expenses, childID), w, now)
	return ChildSummary{
		ChildID:        childID,
		Window:         w,
		OneTimeTotal:   Sum(c.OneTimeInCycle),
		RecurringTotal: Sum(c.ActiveRecurring),
	}
}

// SummarizeChildren runs SummarizeChild for each id, in order.
func SummarizeChildren(expenses []core.Expense, childIDs []string, billingDay int, now time.Time) []ChildSummary {
	out := make([]ChildSummary, 0, len(childIDs))
	for _, id := range childIDs {
		out = append(out, SummarizeChild(expenses, id, billingDay, now))
	}
	return out
}

type summaryKey struct {
	fingerprint uint64
	childID     string
	billingDay  int
	cycleStart  int64
}

// Summarizer memoizes SummarizeChild. Results are keyed on a fingerprint of
// the expense list (including which templates are active at now), the child,
// the billing day and the cycle start, so a stale entry is never served for
// changed input.
type Summarizer struct {
	cache *cache.LRU[summaryKey, ChildSummary]
}

// NewSummarizer creates a Summarizer holding at most size summaries for ttl.
func NewSummarizer(size int, ttl time.Duration) *Summarizer {
	return &Summarizer{cache: cache.NewLRU[summaryKey, ChildSummary](size, ttl)}
}

// Cache exposes the backing cache so a cache.Manager can sweep it.
func (s *Summarizer) Cache() *cache.LRU[summaryKey, ChildSummary] {
	return s.cache
}

func (s *Summarizer) Summarize(expenses []core.Expense, childID string, billingDay int, now time.Time) ChildSummary {
	w := cycle.WindowFor(now, billingDay)
	key := summaryKey{
		fingerprint: Fingerprint(expenses, now),
		childID:     childID,
		billingDay:  cycle.NormalizeBillingDay(billingDay),
		cycleStart:  w.Start.UnixNano(),
	}
	return s.cache.GetOrCompute(key, func() ChildSummary {
		return SummarizeChild(expenses, childID, billingDay, now)
	})
}

func (s *Summarizer) SummarizeAll(expenses []core.Expense, childIDs []string, billingDay int, now time.Time) []ChildSummary {
	out := make([]ChildSummary, 0, len(childIDs))
	for _, id := range childIDs {
		out = append(out, s.Summarize(expenses, id, billingDay, now))
	}
	return out
}

// Fingerprint hashes every field the summaries depend on. Template activity
// is folded in per row, so the same list yields a different fingerprint once
// a template expires.
func Fingerprint(expenses []core.Expense, now time.Time) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeString := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	writeBool := func(b bool) {
		if b {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	}

	for _, e := range expenses {
		writeString(e.ID)
		writeString(e.Amount.String())
		writeString(e.Date.String())
		writeString(string(e.Status))
		writeString(e.ChildID)
		writeBool(e.IsRecurring)
		if e.IsRecurring {
			writeBool(recurring.IsActive(e, now))
		}
	}
	writeInt(int64(len(expenses)))
	return h.Sum64()
}
