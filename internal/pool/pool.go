// Package pool provides reusable buffers for the streaming row processor.
package pool

import "sync"

// RecordBatchPool pools batches of CSV records so the streaming processor
// can recycle the per-batch backing slices between reads.
type RecordBatchPool struct {
	pool sync.Pool
}

// NewRecordBatchPool creates a pool handing out batches with the given
// capacity.
func NewRecordBatchPool(batchSize int) *RecordBatchPool {
	return &RecordBatchPool{
		pool: sync.Pool{
			New: func() interface{} {
				batch := make([][]string, 0, batchSize)
				return &batch
			},
		},
	}
}

// Get retrieves an empty batch from the pool.
func (p *RecordBatchPool) Get() *[][]string {
	return p.pool.Get().(*[][]string)
}

// Put returns a batch to the pool for reuse. Length is reset, capacity and
// the record slices themselves are kept.
func (p *RecordBatchPool) Put(batch *[][]string) {
	*batch = (*batch)[:0]
	p.pool.Put(batch)
}
