package natsclient

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/pkg/retry"
)

// Options configures the NATS client.
type Options struct {
	URL           string
	Name          string
	ConnectWait   time.Duration // Per-attempt connect timeout
	MaxReconnects int           // -1 means reconnect forever
	ReconnectWait time.Duration
	DrainTimeout  time.Duration
}

// DefaultOptions returns options suitable for a local NATS server.
func DefaultOptions(url string) Options {
	return Options{
		URL:           url,
		Name:          "comfytrade",
		ConnectWait:   5 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		DrainTimeout:  10 * time.Second,
	}
}

// Client wraps a NATS connection and its JetStream context. It exists to
// hand out JetStream key-value buckets for persistence.
type Client struct {
	opts   Options
	logger *slog.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
}

// New creates a client. Connect must be called before any bucket access.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"natsclient", "New", "server URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{opts: opts, logger: logger}, nil
}

// Connect establishes the NATS connection and JetStream context, retrying
// transient failures until the context is cancelled or attempts run out.
func (c *Client) Connect(ctx context.Context) error {
	natsOpts := []nats.Option{
		nats.Name(c.opts.Name),
		nats.Timeout(c.opts.ConnectWait),
		nats.MaxReconnects(c.opts.MaxReconnects),
		nats.ReconnectWait(c.opts.ReconnectWait),
		nats.DrainTimeout(c.opts.DrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	err := retry.Do(ctx, retry.Persistent(), func() error {
		conn, err := nats.Connect(c.opts.URL, natsOpts...)
		if err != nil {
			c.logger.Warn("NATS connect attempt failed", "url", c.opts.URL, "error", err)
			return err
		}

		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return retry.NonRetryable(err)
		}

		c.mu.Lock()
		c.conn = conn
		c.js = js
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		return errors.WrapTransient(err, "natsclient", "Connect", "establish connection")
	}

	c.logger.Info("Connected to NATS", "url", c.opts.URL)
	return nil
}

// IsConnected reports whether the underlying connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// KeyValueBucket opens the named KV bucket, creating it if it does not
// exist. Creation races with other instances are resolved by re-opening.
func (c *Client) KeyValueBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return nil, errors.WrapTransient(errors.ErrStorageUnavailable,
			"natsclient", "KeyValueBucket", "client not connected")
	}

	bucket, err := js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}

	bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  name,
		History: 1,
	})
	if err != nil {
		if isAlreadyExistsError(err) {
			bucket, err = js.KeyValue(ctx, name)
			if err != nil {
				return nil, errors.WrapTransient(err, "natsclient", "KeyValueBucket",
					"open existing bucket "+name)
			}
			return bucket, nil
		}
		return nil, errors.WrapTransient(err, "natsclient", "KeyValueBucket",
			"create bucket "+name)
	}

	c.logger.Info("Created KV bucket", "bucket", name)
	return bucket, nil
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	if err := conn.Drain(); err != nil {
		conn.Close()
		return errors.Wrap(err, "natsclient", "Close", "drain connection")
	}
	return nil
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bucket name already in use") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "stream name already in use")
}
