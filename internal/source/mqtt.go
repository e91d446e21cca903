package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/user/livedrops/internal/types"
)

// MQTTConfig describes the broker the backend publishes drops to.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTSubscriber is the streaming push path. Every message on the topic is
// decoded and passed to the sink; reconnects are handled by the client and
// resubscribe through the connect handler.
type MQTTSubscriber struct {
	cfg    MQTTConfig
	sink   types.BatchIngester
	client mqtt.Client
}

func NewMQTTSubscriber(cfg MQTTConfig, sink types.BatchIngester) *MQTTSubscriber {
	s := &MQTTSubscriber{cfg: cfg, sink: sink}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(connectLostHandler)
	s.client = mqtt.NewClient(opts)
	return s
}

func (s *MQTTSubscriber) onConnect(client mqtt.Client) {
	slog.Info("connected to MQTT", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
	if token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handleMessage); token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscribe failed", "topic", s.cfg.Topic, "error", token.Error())
	}
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	slog.Warn("MQTT connection lost", "error", err)
}

func (s *MQTTSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	s.deliver(msg.Payload())
}

// deliver decodes one payload. Malformed payloads are dropped so one bad
// message cannot stop the stream.
func (s *MQTTSubscriber) deliver(payload []byte) {
	batch, err := types.ParseBatch(payload)
	if err != nil {
		slog.Warn("dropping malformed push payload", "error", err)
		return
	}
	s.sink.IngestBatch(batch)
}

// Run connects and blocks until ctx is done.
func (s *MQTTSubscriber) Run(ctx context.Context) error {
	token := s.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("connect to %s: timed out", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.cfg.Broker, err)
	}
	<-ctx.Done()
	s.client.Disconnect(250)
	slog.Info("MQTT subscriber stopped")
	return nil
}
