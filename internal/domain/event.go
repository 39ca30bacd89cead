package domain

import (
	"context"
	"time"
)

// RawEvent is one message read from the source topic. Value holds a telegram
// batch or a center document.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

