package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bacchus320/snowflake/internal/config"
	"github.com/bacchus320/snowflake/internal/modules/mountains/types"
)

const (
	publishQoS     = byte(1)
	publishTimeout = 5 * time.Second
)

// Publisher sends snow reports to the broker.
type Publisher struct {
	client      mqtt.Client
	cfg         config.Config
	topicPrefix string
	logger      *slog.Logger
	mu          sync.RWMutex
	connected   bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		cfg:         cfg,
		topicPrefix: strings.Trim(cfg.MQTTTopicPrefix, "/"),
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

func brokerURL(cfg config.Config) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort)
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// SnowReportTopic is the retained topic of one mountain.
func SnowReportTopic(prefix, mountainID string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return mountainID + "/snow"
	}
	return prefix + "/" + mountainID + "/snow"
}

// PublishSnowReport sends the report as retained JSON with QoS 1.
func (p *Publisher) PublishSnowReport(report types.SnowReport) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	if report.MountainID == "" {
		return fmt.Errorf("snow report without mountain id")
	}

	topic := SnowReportTopic(p.topicPrefix, report.MountainID)
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal snow report: %w", err)
	}

	token := p.client.Publish(topic, publishQoS, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish snow report: %w", err)
	}

	p.logger.Debug("published snow report", "topic", topic, "mountain_id", report.MountainID, "available", report.Available)
	return nil
}

// IsConnected returns whether the client is connected.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. Safe to call more than once; Connect
// fails afterwards.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
