package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// publisher is the slice of mqtt.Client used for sending.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT connection handler
var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

// MQTT connection lost handler
var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Error().Err(err).Msg("MQTT connection lost")
}

// NewMQTTClient connects to brokerURL and keeps reconnecting on its own.
func NewMQTTClient(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Str("broker", brokerURL).Msg("MQTT client initialized successfully")
	return client, nil
}

// MQTTNotifier publishes each transition as JSON on
// <prefix>/items/<item id>/<action> with QoS 1.
type MQTTNotifier struct {
	client publisher
	prefix string
}

func NewMQTTNotifier(client publisher, topicPrefix string) *MQTTNotifier {
	return &MQTTNotifier{client: client, prefix: strings.TrimSuffix(topicPrefix, "/")}
}

func (n *MQTTNotifier) Topic(t Transition) string {
	return fmt.Sprintf("%s/items/%d/%s", n.prefix, t.ItemID, t.Action)
}

func (n *MQTTNotifier) Notify(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}

	topic := n.Topic(t)
	token := n.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	log.Debug().Str("topic", topic).Msg("publishing notification sent")
	return nil
}
