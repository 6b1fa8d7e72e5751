package mqttbus

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PahoBus is the production Bus backed by the Eclipse Paho MQTT client.
type PahoBus struct {
	client mqtt.Client
}

// DialOptions configures a PahoBus connection.
type DialOptions struct {
	Host     string
	Port     int
	ClientID string
}

// Dial connects a new PahoBus to the given broker.
func Dial(opts DialOptions) (*PahoBus, error) {
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Host, opts.Port)).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(mqttOpts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqttbus: connect: %w", tok.Error())
	}
	return &PahoBus{client: client}, nil
}

// Publish sends payload on topic at QoS 0.
func (b *PahoBus) Publish(topic string, payload []byte) error {
	tok := b.client.Publish(topic, 0, false, payload)
	tok.Wait()
	return tok.Error()
}

// Subscribe registers h for every message delivered on topic.
func (b *PahoBus) Subscribe(topic string, h Handler) error {
	tok := b.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	tok.Wait()
	return tok.Error()
}

// Unsubscribe removes any handler registered for topic.
func (b *PahoBus) Unsubscribe(topic string) error {
	tok := b.client.Unsubscribe(topic)
	tok.Wait()
	return tok.Error()
}

// Close disconnects from the broker, waiting up to 250ms for in-flight
// work to drain.
func (b *PahoBus) Close() {
	b.client.Disconnect(250)
}
