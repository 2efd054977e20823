package media

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Progress meters bytes moved by one transfer. Safe for concurrent use.
type Progress struct {
	total int64
	done  atomic.Int64

	mu      sync.Mutex
	started time.Time
	now     func() time.Time
}

type ProgressSnapshot struct {
	Done     int64
	Total    int64
	Fraction float64
	RateMBps float64
	ETA      string
}

func NewProgress(total int64) *Progress {
	return &Progress{total: total, now: time.Now}
}

func (p *Progress) Add(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	if p.started.IsZero() {
		p.started = p.now()
	}
	p.mu.Unlock()
	p.done.Add(n)
}

func (p *Progress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	done := p.done.Load()
	snap := ProgressSnapshot{Done: done, Total: p.total}
	if p.total > 0 {
		snap.Fraction = math.Min(float64(done)/float64(p.total), 1)
	}

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started.IsZero() {
		return snap
	}
	elapsed := p.now().Sub(started).Seconds()
	if elapsed <= 0 {
		return snap
	}
	bytesPerSec := float64(done) / elapsed
	snap.RateMBps = bytesPerSec / 1_000_000
	snap.ETA = EstimateETA(p.total, done, bytesPerSec)
	return snap
}

// ProgressReader counts bytes read through it.
type ProgressReader struct {
	r io.Reader
	p *Progress
}

func NewProgressReader(r io.Reader, p *Progress) *ProgressReader {
	return &ProgressReader{r: r, p: p}
}

func (r *ProgressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.p.Add(int64(n))
	return n, err
}

func EstimateETA(totalBytes, doneBytes int64, bytesPerSec float64) string {
	if totalBytes <= 0 || bytesPerSec <= 0 {
		return ""
	}
	remaining := totalBytes - doneBytes
	if remaining <= 0 {
		return "0m"
	}
	return FormatETA(float64(remaining) / bytesPerSec)
}

func FormatETA(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	secs := int64(math.Round(seconds))
	if secs < 60 {
		return "<1m"
	}
	minutes := secs / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if remMinutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, remMinutes)
}

func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for q := n / unit; q >= unit; q /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
