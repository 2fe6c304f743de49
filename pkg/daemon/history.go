package daemon

import (
	"sync"
	"time"

	"github.com/jiofi-tools/jiobatt/pkg/types"
)

// History keeps the last N status records, oldest first.
type History struct {
	MaxRecordCount int
	records        []types.StatusRecord
	mu             *sync.Mutex
}

// NewHistory returns an empty History.
func NewHistory(maxRecordCount int) *History {
	return &History{
		MaxRecordCount: maxRecordCount,
		records:        make([]types.StatusRecord, 0, maxRecordCount),
		mu:             &sync.Mutex{},
	}
}

// Add appends a record, evicting the oldest one when full.
func (h *History) Add(r types.StatusRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Strip monotonic clock reading.
	// This will prevent time.Since from returning values that are not accurate (especially when the system is in sleep mode).
	r.UpdatedAt = r.UpdatedAt.Round(0)

	if len(h.records) >= h.MaxRecordCount {
		h.records = h.records[1:]
	}
	h.records = append(h.records, r)
}

// Clear drops all records.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = make([]types.StatusRecord, 0, h.MaxRecordCount)
}

// Records returns a copy of all records.
func (h *History) Records() []types.StatusRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]types.StatusRecord(nil), h.records...)
}

// Last returns the newest record.
func (h *History) Last() (types.StatusRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return types.StatusRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// Since returns the records newer than d, newest first.
func (h *History) Since(d time.Duration, now time.Time) []types.StatusRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var records []types.StatusRecord
	for i := len(h.records) - 1; i >= 0; i-- {
		r := h.records[i]
		if now.Sub(r.UpdatedAt) > d {
			break
		}
		records = append(records, r)
	}
	return records
}

// Gaps returns how many refreshes were apparently missed between records,
// counting a gap wherever two neighbours are more than interval+slack apart.
func (h *History) Gaps(interval, slack time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	gaps := 0
	for i := 1; i < len(h.records); i++ {
		if h.records[i].UpdatedAt.Sub(h.records[i-1].UpdatedAt) > interval+slack {
			gaps++
		}
	}
	return gaps
}
