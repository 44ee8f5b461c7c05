package building

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a live broker connection.
var ErrNotConnected = errors.New("MQTT client not connected")

// ReportPublisher publishes run reports to MQTT
type ReportPublisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
}

// reportMessage is the wire form of a report.
type reportMessage struct {
	*Report
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Summary   string `json:"summary"`
	Timestamp int64  `json:"timestamp"`
}

// NewReportPublisher creates a publisher. MQTT_PUBLISH_PREFIX overrides the
// configured prefix.
func NewReportPublisher(client mqtt.Client, cfg MQTTConfig) *ReportPublisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = cfg.PublishPrefix
	}
	if prefix == "" {
		prefix = "mind-to-model"
	}
	return &ReportPublisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // latest report per building
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *ReportPublisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *ReportPublisher) SetRetain(retain bool) {
	p.retain = retain
}

// Topic returns the report topic for a building.
func (p *ReportPublisher) Topic(buildingID string) string {
	return fmt.Sprintf("%s/%s/report", p.publishPrefix, orUnnamed(buildingID))
}

// PublishReport publishes the full report and a one-word status.
func (p *ReportPublisher) PublishReport(r *Report) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}

	msg := reportMessage{Report: r, OK: r.OK(), Summary: r.Summary(), Timestamp: time.Now().Unix()}
	if r.Err != nil {
		msg.Error = r.Err.Error()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := p.publish(p.Topic(r.BuildingID), payload); err != nil {
		return err
	}

	status := "ok"
	if !msg.OK {
		status = "failed"
	}
	if err := p.publish(fmt.Sprintf("%s/%s/status", p.publishPrefix, orUnnamed(r.BuildingID)), []byte(status)); err != nil {
		return err
	}
	logger().Info("published report", "topic", p.Topic(r.BuildingID), "run", r.RunID)
	return nil
}

func orUnnamed(id string) string {
	if id == "" {
		return "unnamed"
	}
	return id
}

func (p *ReportPublisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// NewMQTTClient builds a paho client from cfg with the MQTT_* environment
// overrides and connects it. It returns nil, nil when no broker is configured.
func NewMQTTClient(cfg MQTTConfig, timeout time.Duration) (mqtt.Client, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = cfg.Broker
	}
	if broker == "" {
		logger().Info("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = cfg.ClientID
	}
	if clientID == "" {
		clientID = "mind-to-model"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = cfg.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = cfg.Password
		}
		opts.SetPassword(password)
	}
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timeout after %v", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}
	logger().Info("connected to MQTT broker", "broker", broker, "clientId", clientID)
	return client, nil
}
