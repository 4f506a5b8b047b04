// Package natsbridge consumes probe telemetry published to NATS by the
// device bridge that owns the BLE link.
package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

// SubjectPrefix is followed by the probe serial in 4-digit hex.
const SubjectPrefix = "probeflow.telemetry."

// Config captures the connection to the bridge's NATS server.
type Config struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

func (c *Config) ApplyDefaults() {
	if c.Subject == "" {
		c.Subject = SubjectPrefix + ">"
	}
	if c.Name == "" {
		c.Name = "probeflow"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// Enabled reports whether a bridge URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// SubjectFor returns the publish subject of one probe.
func SubjectFor(serial uint32) string {
	return fmt.Sprintf("%s%04X", SubjectPrefix, serial)
}

// Decode parses one bridge message. When the payload omits the probe serial
// it is taken from the subject suffix.
func Decode(subject string, data []byte) (*domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", subject, err)
	}
	if e.ProbeSerial == 0 {
		if serial, ok := serialFromSubject(subject); ok {
			e.ProbeSerial = serial
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func serialFromSubject(subject string) (uint32, bool) {
	if !strings.HasPrefix(subject, SubjectPrefix) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(subject, SubjectPrefix), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

type Collector struct {
	cfg     Config
	obs     ports.Observability
	now     func() time.Time
	conn    *nats.Conn
	sub     *nats.Subscription
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

func NewCollector(cfg Config, obs ports.Observability) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg, obs: obs, now: time.Now}, nil
}

func (c *Collector) Start(out chan<- *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("nats bridge collector already started")
	}

	conn, err := nats.Connect(c.cfg.URL,
		nats.Name(c.cfg.Name),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.obs.LogError("bridge_disconnected", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.obs.LogInfo("bridge_reconnected", ports.Field{Key: "url", Value: nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	handler := c.handler(ctx, out)
	sub, err := conn.Subscribe(c.cfg.Subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("nats subscribe %s: %w", c.cfg.Subject, err)
	}

	c.conn = conn
	c.sub = sub
	c.cancel = cancel
	c.started = true
	c.obs.LogInfo("bridge_subscribed", ports.Field{Key: "subject", Value: c.cfg.Subject})
	return nil
}

// handler decodes a message and forwards it until ctx is cancelled.
// Malformed messages are counted as dead letters and dropped.
func (c *Collector) handler(ctx context.Context, out chan<- *domain.Event) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		e, err := Decode(subject, data)
		if err != nil {
			c.obs.RecordDLQ(0, nil, err)
			c.obs.LogError("bridge_message_rejected", err, ports.Field{Key: "subject", Value: subject})
			return
		}
		if e.ObservedAt.IsZero() {
			e.ObservedAt = c.now()
		}
		select {
		case <-ctx.Done():
		case out <- e:
		}
	}
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	sub, conn, cancel := c.sub, c.conn, c.cancel
	c.sub, c.conn, c.cancel = nil, nil, nil
	c.started = false
	c.mu.Unlock()

	// unblock handlers waiting on out before draining
	cancel()
	var err error
	if e := sub.Unsubscribe(); e != nil && !errors.Is(e, nats.ErrConnectionClosed) {
		err = errors.Join(err, e)
	}
	if e := conn.Drain(); e != nil && !errors.Is(e, nats.ErrConnectionClosed) {
		err = errors.Join(err, e)
	}
	return err
}

var _ ports.Collector = (*Collector)(nil)
