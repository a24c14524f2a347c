package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerMessages(t *testing.T) {
	var out syncBuffer
	kind := spinner.Spinner{Frames: []string{"a", "b"}, FPS: 5 * time.Millisecond}

	s := NewSpinner(&out, kind, "waiting")
	s.Start()
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "waiting") }, time.Second, 5*time.Millisecond)

	s.SetMessage("negotiating")
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "negotiating") }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := out.String()
	assert.True(t, strings.HasSuffix(stopped, "\r\033[K"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, out.String(), "nothing drawn after Stop")
}
