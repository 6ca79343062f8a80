package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// Spinner animates the current coordinator state on one terminal line.
// Start while running only relabels; Stop clears the line and is idempotent.
type Spinner struct {
	out io.Writer

	mu    sync.Mutex
	label string
	done  chan struct{}
	wg    sync.WaitGroup
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out}
}

func (s *Spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.done)
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.mu.Lock()
		label := s.label
		s.mu.Unlock()
		fmt.Fprintf(s.out, "\r\033[K%s %s", spinnerFrames[frame%len(spinnerFrames)], mutedStyle.Render(label))

		select {
		case <-done:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
}
