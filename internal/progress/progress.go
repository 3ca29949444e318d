package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Indicator renders batch progress on a terminal line. It is safe for
// concurrent use; a disabled indicator writes nothing.
type Indicator struct {
	mu         sync.Mutex
	out        io.Writer
	enabled    bool
	message    string
	total      int
	done       int
	failed     int
	startTime  time.Time
	lastUpdate time.Time
	now        func() time.Time
}

// NewIndicator creates an indicator for total items writing to out.
func NewIndicator(out io.Writer, message string, total int, enabled bool) *Indicator {
	return &Indicator{
		out:     out,
		enabled: enabled && out != nil,
		message: message,
		total:   total,
		now:     time.Now,
	}
}

// Start prints the header line.
func (p *Indicator) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.lastUpdate = p.startTime
	if p.enabled {
		fmt.Fprintf(p.out, "%s...\n", p.message)
	}
}

// Update records that done items have finished, failed of them with an
// error. Redraws are throttled to one per 100ms except for the last item.
func (p *Indicator) Update(done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done, p.failed = done, failed
	if !p.enabled {
		return
	}

	now := p.now()
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && done < p.total {
		return
	}
	p.lastUpdate = now
	fmt.Fprint(p.out, "\r"+p.line(now))
}

// Finish prints the completion line.
func (p *Indicator) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	elapsed := p.now().Sub(p.startTime)
	fmt.Fprintf(p.out, "\r%s done: %d ok, %d failed in %s\n",
		p.message, p.done-p.failed, p.failed, formatDuration(elapsed))
}

// Counts returns the last reported counters.
func (p *Indicator) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

func (p *Indicator) line(now time.Time) string {
	if p.total <= 0 {
		return fmt.Sprintf("%s (%d processed, %d failed)", p.message, p.done, p.failed)
	}

	pct := float64(p.done) / float64(p.total) * 100
	var eta string
	if elapsed := now.Sub(p.startTime); p.done > 0 && p.done < p.total && elapsed > 0 {
		perItem := elapsed / time.Duration(p.done)
		eta = " ETA " + formatDuration(perItem*time.Duration(p.total-p.done))
	}
	return fmt.Sprintf("%s [%s] %d/%d (%.1f%%) %d failed%s",
		p.message, bar(pct), p.done, p.total, pct, p.failed, eta)
}

func bar(pct float64) string {
	const width = 30
	filled := int(pct / 100 * width)
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
