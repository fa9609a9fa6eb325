// Package publisher connects the board pipeline to NATS: riders publish
// their location per session and receive boards on a per-session subject.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/utils"
)

// Metrics receives publish and connection events. *metrics.Collector implements it.
type Metrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

type NATSPublisher struct {
	nc      *nats.Conn
	prefix  string
	logger  *slog.Logger
	metrics Metrics
}

// NewNATSPublisher connects to url. Subjects are rooted at prefix.
func NewNATSPublisher(url, prefix string, logger *slog.Logger, m Metrics) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "nats"))
	setConnected := func(connected bool) {
		if m != nil {
			m.NATSSetConnected(connected)
		}
	}

	nc, err := nats.Connect(url,
		nats.Name("walktimes-watcher"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			setConnected(false)
			logging.LogError(logger, "nats disconnected", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			setConnected(true)
			logging.LogOperation(logger, "nats_reconnected", slog.String("url", utils.RedactURL(c.ConnectedUrl())))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			setConnected(false)
			logging.LogOperation(logger, "nats_closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	setConnected(true)
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger, metrics: m}, nil
}

// Close drains subscriptions and pending publishes, then closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logging.LogError(p.logger, "nats drain failed", err)
		p.nc.Close()
	}
}

// PublishBoard sends msg on <prefix>.board.<session>.
func (p *NATSPublisher) PublishBoard(session string, msg BoardMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding board message: %w", err)
	}

	start := time.Now()
	err = p.nc.Publish(BoardSubject(p.prefix, session), b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// SubscribeLocations calls handle for every message on <prefix>.location.*.
// handle runs on the subscription's goroutine and must not block.
func (p *NATSPublisher) SubscribeLocations(handle func(session string, data []byte)) (*nats.Subscription, error) {
	subject := LocationWildcard(p.prefix)
	sub, err := p.nc.Subscribe(subject, func(m *nats.Msg) {
		session, ok := SessionFromSubject(p.prefix, m.Subject)
		if !ok {
			return
		}
		handle(session, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	logging.LogOperation(p.logger, "nats_subscribed", slog.String("subject", subject))
	return sub, nil
}

func BoardSubject(prefix, session string) string {
	return prefix + ".board." + subjectToken(session)
}

func LocationSubject(prefix, session string) string {
	return prefix + ".location." + subjectToken(session)
}

func LocationWildcard(prefix string) string {
	return prefix + ".location.*"
}

// SessionFromSubject extracts the session token of a location subject.
func SessionFromSubject(prefix, subject string) (string, bool) {
	session, ok := strings.CutPrefix(subject, prefix+".location.")
	if !ok || session == "" || strings.Contains(session, ".") {
		return "", false
	}
	return session, true
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*' or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
