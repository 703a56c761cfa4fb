// Package progressbar implements functionality of printing a progress
// bar to a terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar implements a concurrent progress bar. The bar is redrawn
// on its own goroutine so that drawing never blocks the caller of
// Increment.
type ProgressBar struct {
	out io.Writer

	// width is the number of characters wide that the progress bar is
	width int

	// maxProgress is the number of times Increment() should be called
	// before the progress bar reaches 100%
	maxProgress int

	updateEvery time.Duration

	mu       sync.Mutex
	progress int
	status   string
	start    time.Time

	closeEvent chan struct{}
	done       chan struct{}
	once       sync.Once
	displayed  bool
}

// NewProgressBar returns a new progress bar that is width characters
// wide, reaches 100% capacity after max Increment() calls, and redraws
// itself to out every updateEvery.
func NewProgressBar(out io.Writer, width, max int,
	updateEvery time.Duration) *ProgressBar {
	if max < 1 {
		max = 1
	}
	if updateEvery <= 0 {
		updateEvery = time.Second
	}
	return &ProgressBar{
		out:         out,
		width:       width,
		maxProgress: max,
		updateEvery: updateEvery,
		closeEvent:  make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progress < p.maxProgress {
		p.progress++
	}
}

// SetStatus sets a short message displayed after the bar
func (p *ProgressBar) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Progress returns the number of times Increment was called, capped at
// the maximum progress
func (p *ProgressBar) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Display starts drawing the progress bar. It should only be called
// once.
func (p *ProgressBar) Display() {
	p.mu.Lock()
	if p.displayed {
		p.mu.Unlock()
		return
	}
	p.displayed = true
	p.start = time.Now()
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		tick := time.NewTicker(p.updateEvery)
		defer tick.Stop()

		for {
			select {
			case <-tick.C:
				p.draw()

			case <-p.closeEvent:
				p.draw()
				return
			}
		}
	}()
}

// Close stops the progress bar so that it will no longer display and
// releases the goroutine started by Display. Close may be called more
// than once.
func (p *ProgressBar) Close() {
	p.once.Do(func() {
		close(p.closeEvent)

		p.mu.Lock()
		displayed := p.displayed
		p.mu.Unlock()

		if displayed {
			<-p.done
			fmt.Fprintln(p.out) // Jump to next line after printed bar
		}
	})
}

// String returns the current rendering of the progress bar
func (p *ProgressBar) String() string {
	p.mu.Lock()
	progress, status, start := p.progress, p.status, p.start
	p.mu.Unlock()

	fraction := float64(progress) / float64(p.maxProgress)
	filled := int(fraction * float64(p.width))

	var bar strings.Builder
	bar.WriteString("|")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))

	elapsed := time.Duration(0)
	if !start.IsZero() {
		elapsed = time.Since(start).Round(time.Second)
	}
	fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]", fraction*100, elapsed)
	if status != "" {
		fmt.Fprintf(&bar, " %v", status)
	}
	return bar.String()
}

func (p *ProgressBar) draw() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}
