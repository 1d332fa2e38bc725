// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by outbound clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff after an HTTP 429. Tests override it
// to avoid real sleeps.
var RetryBaseDelay = time.Second

// MaxRetryDelay caps a single backoff, including server-requested ones.
var MaxRetryDelay = 10 * time.Second

const defaultMaxRetries = 2

// Pacer blocks until another outbound request may be sent. A
// *rate.Limiter's Wait method is a Pacer.
type Pacer func(ctx context.Context) error

type pacerKey struct{}

// WithPacer returns a context carrying p. DoWithRetry calls p before every
// retry so that retried requests draw from the same budget as first
// attempts. The first attempt is not paced; callers gate it themselves.
func WithPacer(ctx context.Context, p Pacer) context.Context {
	return context.WithValue(ctx, pacerKey{}, p)
}

func pacerFrom(ctx context.Context) Pacer {
	p, _ := ctx.Value(pacerKey{}).(Pacer)
	return p
}

// DoWithRetry executes req and retries on HTTP 429 (Too Many Requests) with
// exponential backoff starting at RetryBaseDelay. A Retry-After header given
// in seconds lengthens the computed delay but never shortens it. Requests
// with a body are replayed through req.GetBody, which http.NewRequest sets
// for in-memory bodies. If ctx carries a Pacer it is waited on after the
// backoff and before each retry.
//
// When maxRetries is 0 the default (2) is used. If ctx ends during a wait
// the function returns ctx.Err(). After exhausting retries the last 429
// response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		attemptReq, err := replay(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}

		if pace := pacerFrom(ctx); pace != nil {
			if err := pace(ctx); err != nil {
				return nil, fmt.Errorf("pacing retry: %w", err)
			}
		}
	}
}

func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return r, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	r.Body = body
	return r, nil
}

func backoff(attempt int, retryAfter string) time.Duration {
	d := RetryBaseDelay << attempt
	if secs, err := strconv.Atoi(retryAfter); err == nil && time.Duration(secs)*time.Second > d {
		d = time.Duration(secs) * time.Second
	}
	if d > MaxRetryDelay {
		d = MaxRetryDelay
	}
	return d
}
