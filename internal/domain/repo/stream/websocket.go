package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

const DefaultReadTimeout = 30 * time.Second

var ErrClosed = errors.New("subscription closed")

// WebsocketStream subscribes to the anomaly push channel of the dashboard backend.
type WebsocketStream struct {
	url         string
	header      http.Header
	dialer      *websocket.Dialer
	readTimeout time.Duration
}

func NewWebsocketStream(url string, token string, readTimeout time.Duration) WebsocketStream {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return WebsocketStream{
		url:         url,
		header:      header,
		dialer:      websocket.DefaultDialer,
		readTimeout: readTimeout,
	}
}

func (s WebsocketStream) Subscribe(ctx context.Context) (repo.AnomalySubscription, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (%s): %w", s.url, resp.Status, err)
		}

		return nil, fmt.Errorf("failed to dial %s: %w", s.url, err)
	}

	ret := &subscription{
		conn:        conn,
		readTimeout: s.readTimeout,
		messages:    make(chan []byte),
		done:        make(chan struct{}),
	}

	go ret.read()

	return ret, nil
}

// subscription reads the connection from its own goroutine so Next can honour ctx.
type subscription struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	messages chan []byte
	done     chan struct{}
	err      error

	closeOnce sync.Once
}

func (s *subscription) read() {
	defer close(s.messages)

	for {
		err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		if err != nil {
			s.err = err

			return
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.err = err

			return
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		select {
		case s.messages <- data:
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Next(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-s.messages:
		if !ok {
			// s.err is written before messages is closed
			if s.err != nil {
				return nil, s.err
			}

			return nil, ErrClosed
		}

		return data, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *subscription) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)

		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)

		err = s.conn.Close()
	})

	return err
}
