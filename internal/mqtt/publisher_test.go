package mqtt

import (
	"encoding/json"
	"sync"
	"testing"

	"farmbeats-monitor/internal/simulation"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	mqtt.Token
}

func (doneToken) Wait() bool   { return true }
func (doneToken) Error() error { return nil }

type published struct {
	retained bool
	payload  interface{}
}

type fakeClient struct {
	mqtt.Client

	mu       sync.Mutex
	messages map[string]published
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = map[string]published{}
	}
	f.messages[topic] = published{retained: retained, payload: payload}
	return doneToken{}
}

func (f *fakeClient) IsConnected() bool { return true }

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "farmbeats")

	m, err := simulation.Resolve(simulation.Cloudy)
	require.NoError(t, err)
	require.NoError(t, p.Publish(m))

	assert.Equal(t, "65", client.messages["farmbeats/farm/battery_level"].payload)
	assert.Equal(t, "140Wh/day", client.messages["farmbeats/farm/solar_input"].payload)
	assert.Equal(t, "140", client.messages["farmbeats/farm/solar_input_wh"].payload)
	assert.Equal(t, "Conservation Mode", client.messages["farmbeats/farm/operating_mode"].payload)
	assert.Equal(t, "Cloudy", client.messages["farmbeats/farm/condition"].payload)

	status := client.messages["farmbeats/farm/status"]
	assert.True(t, status.retained)
	var decoded simulation.DerivedMetrics
	require.NoError(t, json.Unmarshal(status.payload.([]byte), &decoded))
	assert.Equal(t, m, decoded)
	assert.True(t, p.IsConnected())
}

func TestPublishHomeAssistantDiscovery(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "farmbeats")
	require.NoError(t, p.PublishHomeAssistantDiscovery())

	msg, ok := client.messages["homeassistant/sensor/farmbeats/battery_level/config"]
	require.True(t, ok)
	assert.True(t, msg.retained)

	var config map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.payload.([]byte), &config))
	assert.Equal(t, "farmbeats/farm/battery_level", config["state_topic"])
	assert.Equal(t, "%", config["unit_of_measurement"])
	assert.Equal(t, "battery", config["device_class"])
	assert.Len(t, client.messages, len(discoverySensors))
}

func TestDisabledPublisher(t *testing.T) {
	p, err := NewPublisher(PublisherConfig{Enabled: false})
	require.NoError(t, err)

	m, err := simulation.Resolve(simulation.Sunny)
	require.NoError(t, err)
	assert.NoError(t, p.Publish(m))
	assert.NoError(t, p.PublishHomeAssistantDiscovery())
	assert.False(t, p.IsConnected())
	p.Close()
}
