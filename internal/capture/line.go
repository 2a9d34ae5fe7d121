package capture

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// LineRecognizer treats each line read from r as one spoken sentence. It
// backs the terminal client and typed input.
type LineRecognizer struct {
	lines  chan string
	closed atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
}

func NewLineRecognizer(r io.Reader) *LineRecognizer {
	l := &LineRecognizer{lines: make(chan string)}
	go func() {
		defer func() {
			l.closed.Store(true)
			close(l.lines)
		}()
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			l.lines <- sc.Text()
		}
	}()
	return l
}

func (l *LineRecognizer) Available(context.Context) bool { return !l.closed.Load() }

// Closed reports whether the input has been fully consumed.
func (l *LineRecognizer) Closed() bool { return l.closed.Load() }

func (l *LineRecognizer) RequestPermission(context.Context) (bool, error) { return true, nil }

// Start returns the next line. At end of input it returns io.EOF.
func (l *LineRecognizer) Start(ctx context.Context, _ string, partial func(string)) (string, error) {
	stop := make(chan struct{})
	l.mu.Lock()
	l.stop = stop
	l.mu.Unlock()

	select {
	case line, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		line = strings.TrimSpace(line)
		if partial != nil {
			partial(line)
		}
		return line, nil
	case <-stop:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *LineRecognizer) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	return nil
}
