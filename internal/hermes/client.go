package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Handler receives the raw JSON body of a message.
type Handler func(subject string, data []byte)

// Bus is the publish/subscribe surface shared by the NATS client and the
// in-process bus.
type Bus interface {
	Publish(subject string, data any) error
	Subscribe(subject string, handler Handler) error
	Close()
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("sonar"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler Handler) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// Local delivers messages to in-process subscribers. It is used when no NATS
// server is configured. Handlers run on their own goroutine, like NATS
// callbacks, and Close waits for in-flight handlers.
type Local struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	wg     sync.WaitGroup
	closed bool
	logger *slog.Logger
}

func NewLocal(logger *slog.Logger) *Local {
	return &Local{subs: make(map[string][]Handler), logger: logger}
}

func (l *Local) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return fmt.Errorf("publish %s: bus closed", subject)
	}
	for pattern, handlers := range l.subs {
		if !subjectMatches(pattern, subject) {
			continue
		}
		for _, h := range handlers {
			l.wg.Add(1)
			go func(h Handler) {
				defer l.wg.Done()
				h(subject, payload)
			}(h)
		}
	}
	return nil
}

func (l *Local) Subscribe(subject string, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[subject] = append(l.subs[subject], handler)
	l.logger.Info("subscribed", "subject", subject, "bus", "local")
	return nil
}

func (l *Local) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}

// subjectMatches implements the NATS token wildcards '*' and a trailing '>'.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
