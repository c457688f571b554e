package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"farmbeats-monitor/internal/simulation"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const deviceTopic = "farm"

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newPublisher(client, cfg.TopicPrefix), nil
}

func newPublisher(client mqtt.Client, topicPrefix string) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		enabled:     true,
	}
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, deviceTopic, name)
}

// StatePayloads returns the per-sensor topic values for a set of metrics.
func (p *Publisher) StatePayloads(m simulation.DerivedMetrics) map[string]string {
	return map[string]string{
		p.topic("condition"):      m.Condition.String(),
		p.topic("battery_level"):  fmt.Sprintf("%d", m.BatteryLevelPercent),
		p.topic("solar_input"):    m.SolarInputLabel,
		p.topic("solar_input_wh"): fmt.Sprintf("%d", m.SolarInputWhPerDay),
		p.topic("operating_mode"): string(m.OperatingMode),
	}
}

func (p *Publisher) Publish(m simulation.DerivedMetrics) error {
	if !p.enabled {
		return nil
	}

	for topic, payload := range p.StatePayloads(m) {
		token := p.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v", topic, token.Error())
		}
	}

	statusJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	token := p.client.Publish(p.topic("status"), 0, true, statusJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish status: %w", token.Error())
	}

	return nil
}

type discoverySensor struct {
	Name        string
	ID          string
	Unit        string
	DeviceClass string
}

var discoverySensors = []discoverySensor{
	{"Weather Condition", "condition", "", ""},
	{"Solar Battery", "battery_level", "%", "battery"},
	{"Solar Input", "solar_input", "", ""},
	{"Solar Input Energy", "solar_input_wh", "Wh", "energy"},
	{"System Mode", "operating_mode", "", ""},
}

// DiscoveryPayloads builds the Home Assistant discovery configs keyed by topic.
func (p *Publisher) DiscoveryPayloads() (map[string][]byte, error) {
	payloads := make(map[string][]byte, len(discoverySensors))
	for _, sensor := range discoverySensors {
		config := map[string]interface{}{
			"name":        fmt.Sprintf("FarmBeats %s", sensor.Name),
			"unique_id":   fmt.Sprintf("farmbeats_%s", sensor.ID),
			"state_topic": p.topic(sensor.ID),
			"device": map[string]interface{}{
				"identifiers":  []string{"farmbeats_edge"},
				"name":         "FarmBeats Solar Edge",
				"manufacturer": "FarmBeats",
				"model":        "Simulated Edge Node",
			},
		}
		if sensor.Unit != "" {
			config["unit_of_measurement"] = sensor.Unit
		}
		if sensor.DeviceClass != "" {
			config["device_class"] = sensor.DeviceClass
		}

		payload, err := json.Marshal(config)
		if err != nil {
			return nil, err
		}
		payloads[fmt.Sprintf("homeassistant/sensor/farmbeats/%s/config", sensor.ID)] = payload
	}
	return payloads, nil
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	payloads, err := p.DiscoveryPayloads()
	if err != nil {
		return err
	}
	for topic, payload := range payloads {
		token := p.client.Publish(topic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to publish discovery to %s: %w", topic, token.Error())
		}
	}
	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
