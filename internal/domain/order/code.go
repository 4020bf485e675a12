package order

import (
	"fmt"
	"sync/atomic"
	"time"
)

var codeSeq atomic.Uint64

// GenerateCode builds an order code like "ORD-20251022-143000-0042": a UTC
// timestamp plus a process-local sequence. The orders table's unique index
// on code is the final arbiter across processes.
func GenerateCode(now time.Time) string {
	seq := codeSeq.Add(1) % 10000
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102-150405"), seq)
}
