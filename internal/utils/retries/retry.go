// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package retries

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	initialInterval = 20 * time.Millisecond
	maxInterval     = 1 * time.Second
)

// Do call fn until it succeeds, fails with an error which is not retryable,
// or maxRetries retries are used
func Do(ctx context.Context, maxRetries int, isRetryable func(err error) bool, fn func() error) error {
	// WithMaxRetries treats 0 as no limit
	if maxRetries <= 0 {
		return fn()
	}

	var b = backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx))
}
