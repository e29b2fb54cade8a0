// Package mqttbridge bridges real hardware nodes into the
// simulation/monitoring plane over MQTT: the hardware side publishes
// register/remove commands and this bridge reflects them as telemetry
// events, keyed by small-integer node ids.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"meshcore/internal/telemetry"
)

// NodeCommand is the JSON payload a physical node publishes on its
// command topic to announce itself to the monitoring plane.
type NodeCommand struct {
	NodeID       uint8  `json:"node_id"`
	CommandTopic string `json:"command_topic"`
	StatusTopic  string `json:"status_topic"`
	Event        string `json:"event"` // "register" | "remove"
}

// Bridge wraps a paho MQTT client subscribed to a registration topic.
type Bridge struct {
	client mqtt.Client
	bus    *telemetry.Bus
	logger *log.Logger
	topic  string
}

// New connects to broker and subscribes to topic, publishing
// register/remove events onto bus.
func New(broker, clientID, topic string, bus *telemetry.Bus, logger *log.Logger) (*Bridge, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID).SetAutoReconnect(true)
	b := &Bridge{bus: bus, logger: logger, topic: topic}
	opts.SetDefaultPublishHandler(b.handle)
	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttbridge: connect: %w", token.Error())
	}
	if token := b.client.Subscribe(topic, 1, nil); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttbridge: subscribe %s: %w", topic, token.Error())
	}
	return b, nil
}

func (b *Bridge) handle(_ mqtt.Client, msg mqtt.Message) {
	var cmd NodeCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		if b.logger != nil {
			b.logger.Printf("mqttbridge: malformed node command: %v", err)
		}
		return
	}
	switch cmd.Event {
	case "register":
		b.bus.Publish(telemetry.Event{
			Type: telemetry.EventRouteInstalled, NodeID: cmd.NodeID,
			Detail: fmt.Sprintf("hardware node %d registered on %s", cmd.NodeID, cmd.CommandTopic),
			WallMS: time.Now().UnixMilli(),
		})
	case "remove":
		b.bus.Publish(telemetry.Event{
			Type: telemetry.EventRouteInvalidated, NodeID: cmd.NodeID,
			Detail: fmt.Sprintf("hardware node %d removed", cmd.NodeID),
			WallMS: time.Now().UnixMilli(),
		})
	default:
		if b.logger != nil {
			b.logger.Printf("mqttbridge: unknown event %q from node %d", cmd.Event, cmd.NodeID)
		}
	}
}

// Publish sends a command to a hardware node's own command topic.
func (b *Bridge) Publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

// Disconnect closes the MQTT connection.
func (b *Bridge) Disconnect() {
	b.client.Disconnect(250)
}
