package ingestion

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/poiesic/homesearch/stats"
)

// DropReason names why a row was not loaded.
type DropReason string

const (
	DropMissingID        DropReason = "missing_id"
	DropEmptyDescription DropReason = "empty_description"
	DropDuplicateID      DropReason = "duplicate_id"
	DropMissingTimestamp DropReason = "missing_timestamp"
	DropInvalid          DropReason = "invalid_record"
	DropMalformedRow     DropReason = "malformed_row"
)

// LoadReport summarizes a load.
type LoadReport struct {
	// Read is the number of data rows read.
	Read int `json:"read"`
	// Loaded is the number of records upserted into the index.
	Loaded int `json:"loaded"`
	// Repaired is the number of loaded or attempted rows that needed a repair.
	Repaired int                `json:"repaired"`
	Dropped  map[DropReason]int `json:"dropped"`
	// FailedChunks counts chunks that could not be encoded or stored.
	FailedChunks int `json:"failed_chunks"`
	// FailedRecords is the number of records in failed chunks.
	FailedRecords int `json:"failed_records"`

	// Statistics are the column statistics of the accepted records.
	Statistics *stats.Statistics `json:"-"`
}

// TotalDropped returns the number of dropped rows across all reasons.
func (r *LoadReport) TotalDropped() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Reasons returns the drop reasons in sorted order.
func (r *LoadReport) Reasons() []DropReason {
	return slices.Sorted(maps.Keys(r.Dropped))
}

// chunkCounters are updated from pool workers.
type chunkCounters struct {
	loaded        atomic.Int64
	failedChunks  atomic.Int64
	failedRecords atomic.Int64
}
