// Package ratelimit throttles transfer bandwidth with a token bucket.
package ratelimit

import (
	"io"
	"sync"
	"time"
)

// chunk bounds how many bytes a single reservation may cover. Smaller chunks
// keep the observed rate smooth; larger ones reduce bookkeeping overhead.
const chunk = 16 * 1024

// Limiter is a token bucket holding up to one second of budget. A nil
// Limiter means unlimited and is safe to use.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // bytes per second
	budget float64 // available bytes, capped at rate
	last   time.Time
}

// New returns a limiter for the given rate in bytes per second, or nil when
// the rate is zero or negative.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &Limiter{
		rate:   float64(bytesPerSecond),
		budget: float64(bytesPerSecond),
		last:   time.Now(),
	}
}

// reserve blocks until n bytes of budget are available, then consumes them.
func (l *Limiter) reserve(n int) {
	if l == nil || n <= 0 {
		return
	}

	l.mu.Lock()
	l.refill()
	need := float64(n) - l.budget
	if need <= 0 {
		l.budget -= float64(n)
		l.mu.Unlock()
		return
	}
	wait := time.Duration(need / l.rate * float64(time.Second))
	l.mu.Unlock()

	time.Sleep(wait)

	l.mu.Lock()
	l.refill()
	l.budget -= float64(n)
	if l.budget < 0 {
		l.budget = 0
	}
	l.mu.Unlock()
}

// refill credits budget for the time elapsed since the last update.
// Callers must hold mu.
func (l *Limiter) refill() {
	now := time.Now()
	l.budget += now.Sub(l.last).Seconds() * l.rate
	if l.budget > l.rate {
		l.budget = l.rate
	}
	l.last = now
}

type limitedReader struct {
	r io.Reader
	l *Limiter
}

// NewReader wraps r so reads consume limiter budget. A nil limiter returns r
// unchanged.
func NewReader(r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &limitedReader{r: r, l: l}
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if len(p) > chunk {
		p = p[:chunk]
	}
	lr.l.reserve(len(p))
	return lr.r.Read(p)
}

type limitedWriter struct {
	w io.Writer
	l *Limiter
}

// NewWriter wraps w so writes consume limiter budget before each chunk,
// applying backpressure to the producer. A nil limiter returns w unchanged.
func NewWriter(w io.Writer, l *Limiter) io.Writer {
	if l == nil {
		return w
	}
	return &limitedWriter{w: w, l: l}
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		end := written + chunk
		if end > len(p) {
			end = len(p)
		}
		lw.l.reserve(end - written)
		n, err := lw.w.Write(p[written:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
