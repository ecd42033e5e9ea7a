package client

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/pkg/panicerr"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultBackoffFactor  = 2.0

	// A connection that survived this long resets the backoff.
	stableConnDuration = 30 * time.Second

	maxFrameSize = 1 << 20
)

// Stream subscribes to the server's event feed and hands every task event
// frame to the handler as raw bytes. Keepalive frames are consumed here and
// never reach the handler. Run reconnects with exponential backoff until
// its context is cancelled.
type Stream struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	handler    func(ctx context.Context, data []byte)
	logger     *slog.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffFactor  float64

	connected atomic.Bool
}

func NewStream(endpoint, apiKey string, logger *slog.Logger, handler func(ctx context.Context, data []byte)) *Stream {
	return &Stream{
		endpoint: endpoint,
		apiKey:   apiKey,
		// No client timeout, the subscription is long-lived and torn
		// down through the request context.
		httpClient:     &http.Client{},
		handler:        handler,
		logger:         logger,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		backoffFactor:  defaultBackoffFactor,
	}
}

// Connected reports whether the stream currently holds a live subscription.
func (s *Stream) Connected() bool {
	return s.connected.Load()
}

// Run consumes the feed until ctx is cancelled, reconnecting on any error.
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.initialBackoff
	for {
		start := time.Now()
		err := panicerr.SafeContext(s.consume)(ctx)
		s.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) >= stableConnDuration {
			backoff = s.initialBackoff
		}
		s.logger.WarnContext(ctx, "event stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff.String(),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * s.backoffFactor)
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	s.connected.Store(true)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				s.dispatch(ctx, []byte(data.String()))
				data.Reset()
			}
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(payload, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream read failed: %w", err)
	}
	return fmt.Errorf("event stream closed by server")
}

func (s *Stream) dispatch(ctx context.Context, data []byte) {
	// Keepalives stop here; everything else, including frames that fail
	// to decode, goes to the handler so the reconciler decides its fate.
	if env, err := event.Decode(data); err == nil && env.IsControl() {
		return
	}
	s.handler(ctx, data)
}
