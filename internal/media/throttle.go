package media

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const maxThrottleBurst = 256 * 1024

// ThrottledReader caps read throughput with a token bucket.
type ThrottledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
	burst   int
}

// NewThrottledReader returns r unchanged when limitMBps <= 0.
func NewThrottledReader(ctx context.Context, r io.Reader, limitMBps float64) io.Reader {
	if limitMBps <= 0 {
		return r
	}
	bytesPerSec := limitMBps * 1_000_000
	burst := int(bytesPerSec)
	if burst > maxThrottleBurst {
		burst = maxThrottleBurst
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}
}

func (t *ThrottledReader) Read(b []byte) (int, error) {
	if len(b) > t.burst {
		b = b[:t.burst]
	}
	n, err := t.r.Read(b)
	if n > 0 {
		if waitErr := t.limiter.WaitN(t.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
