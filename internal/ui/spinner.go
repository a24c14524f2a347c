package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates one status line on a terminal until stopped. The text
// may be replaced while it runs.
type Spinner struct {
	out    io.Writer
	frames []string
	fps    time.Duration

	mu      sync.Mutex
	message string
	stopped bool
	done    chan struct{}
}

// NewSpinner uses the frame set and rate of a bubbles spinner.
func NewSpinner(out io.Writer, kind spinner.Spinner, message string) *Spinner {
	return &Spinner{
		out:     out,
		frames:  kind.Frames,
		fps:     kind.FPS,
		message: message,
		done:    make(chan struct{}),
	}
}

// StartConnecting shows a globe while dialing the server.
func StartConnecting(message string) *Spinner {
	s := NewSpinner(os.Stdout, spinner.Globe, message)
	s.Start()
	return s
}

// StartWaiting shows moving points while waiting on the other peer.
func StartWaiting(message string) *Spinner {
	s := NewSpinner(os.Stdout, spinner.Points, message)
	s.Start()
	return s
}

func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(s.fps)
		defer ticker.Stop()

		for i := 0; ; i++ {
			if !s.draw(i) {
				return
			}
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) draw(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	fmt.Fprintf(s.out, "\r\033[K%s %s", SpinnerStyle.Render(s.frames[i%len(s.frames)]), s.message)
	return true
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop clears the line. Calling it again does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	fmt.Fprint(s.out, "\r\033[K")
}
