// Package scanner reads QR payloads from a serial attached barcode scanner
// and fans each scanned line out to any number of subscribers.
package scanner

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"tailscale.com/tsweb"

	"github.com/frc-scouting/scoutqr/internal/monitoring"
)

// Port is the minimal interface needed from a serial port. A scanner in
// keyboard-wedge mode on stdin satisfies it too.
type Port interface {
	io.Reader
	io.Closer
}

// SubscriberBuffer is how many scans a Subscribe channel may fall behind
// before further scans are dropped for it. Queue channels never drop.
const SubscriberBuffer = 64

// maxScanBytes bounds one scanned line.
const maxScanBytes = 64 * 1024

// subscriber is one registered channel. Scans are never dropped for a
// lossless subscriber; its channel is drained by a Queue relay.
type subscriber struct {
	ch       chan string
	lossless bool
}

// Scanner multiplexes scanned lines from one port to subscribers.
type Scanner struct {
	port         Port
	subscribers  map[string]subscriber
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// New wraps an open port.
func New(port Port) *Scanner {
	return &Scanner{
		port:        port,
		subscribers: make(map[string]subscriber),
	}
}

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe returns a channel receiving every scanned line. The id is used to
// unsubscribe. The channel is closed by Unsubscribe or Close.
func (s *Scanner) Subscribe() (string, <-chan string) {
	return s.subscribe(false)
}

func (s *Scanner) subscribe(lossless bool) (string, chan string) {
	id := randomID()
	ch := make(chan string, SubscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = subscriber{ch: ch, lossless: lossless}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Scanner) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// Queue returns a channel receiving every scanned line in order. Lines the
// reader has not taken yet are held in memory, so a slow reader loses
// nothing and never blocks the port. The channel is closed once the scanner
// stops and every held line has been received, or when stop is called.
// Lines still held when stop is called are discarded.
func (s *Scanner) Queue() (lines <-chan string, stop func()) {
	id, in := s.subscribe(true)
	out := make(chan string)
	done := make(chan struct{})
	go relay(in, out, done)

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			s.Unsubscribe(id)
		})
	}
}

// relay moves lines from in to out through an unbounded queue. It always
// keeps receiving from in, so publish never waits on it for long.
func relay(in <-chan string, out chan<- string, done <-chan struct{}) {
	defer close(out)
	var queue []string
	for in != nil || len(queue) > 0 {
		var send chan<- string
		var next string
		if len(queue) > 0 {
			send, next = out, queue[0]
		}
		select {
		case line, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, line)
		case send <- next:
			queue = queue[1:]
		case <-done:
			// Drain until Unsubscribe closes in.
			if in != nil {
				for range in {
				}
			}
			return
		}
	}
}

// Monitor reads lines from the port until it is exhausted, fails, or ctx is
// done. Carriage returns are stripped and blank lines are dropped. When the
// port reaches EOF every subscriber channel is closed and Monitor returns
// nil.
func (s *Scanner) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 4096), maxScanBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking Scan runs on its own goroutine so cancellation is not
	// held up by a silent port.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return fmt.Errorf("failed to read scanner: %w", err)

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return fmt.Errorf("failed to read scanner: %w", err)
				default:
				}
				s.closeSubscribers()
				return nil
			}
			if s.isClosing() {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			s.publish(line)
		}
	}
}

func (s *Scanner) publish(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, sub := range s.subscribers {
		if sub.lossless {
			sub.ch <- line
			continue
		}
		select {
		case sub.ch <- line:
		default:
			// Never block the port; the payload stays in the log for recovery.
			monitoring.Warn("dropped scan for slow subscriber", "subscriber", id, "payload", line)
		}
	}
}

func (s *Scanner) isClosing() bool {
	s.closingMu.Lock()
	defer s.closingMu.Unlock()
	return s.closing
}

func (s *Scanner) closeSubscribers() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// Close closes all subscriber channels and the port.
func (s *Scanner) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.closeSubscribers()
	return s.port.Close()
}

// AttachAdminRoutes adds a live tail of scanned payloads under /debug/ on
// mux, streamed as server-sent events.
func (s *Scanner) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleSilentFunc("scanner-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
