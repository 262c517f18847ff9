// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package limits

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type resourceExhausted struct {
	limit, requested int64
}

func (re *resourceExhausted) Error() string {
	return fmt.Sprintf("row quota exhausted (limit %d, requested %d)", re.limit, re.requested)
}

func IsResourceExhausted(err error) bool {
	var re *resourceExhausted
	return errors.As(err, &re)
}

// Semaphore bounds the number of queries in flight. A zero sized semaphore never blocks.
type Semaphore struct {
	c chan struct{}
}

func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{c: make(chan struct{}, n)}
}

func UnlimitedSemaphore() *Semaphore {
	return NewSemaphore(0)
}

func (s *Semaphore) Reserve(ctx context.Context) error {
	if s.c == nil {
		return nil
	}
	select {
	case s.c <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() {
	if s.c == nil {
		return
	}
	select {
	case <-s.c:
	default:
		panic("semaphore would block on release?")
	}
}

// Quota is the number of rows one query may touch across all of its operators.
type Quota struct {
	mu    sync.Mutex
	limit int64
	used  int64
}

func NewQuota(n int64) *Quota {
	return &Quota{limit: n}
}

func UnlimitedQuota() *Quota {
	return NewQuota(0)
}

func (q *Quota) Reserve(n int64) error {
	if q.limit == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.used+n > q.limit {
		return &resourceExhausted{limit: q.limit, requested: q.used + n}
	}
	q.used += n
	return nil
}

func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.used
}
