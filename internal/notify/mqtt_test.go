package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type pendingToken struct{}

func (pendingToken) Wait() bool                     { return false }
func (pendingToken) WaitTimeout(time.Duration) bool { return false }
func (pendingToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (pendingToken) Error() error                   { return nil }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	sent  []published
	token mqtt.Token
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return f.token
}

func TestMQTTNotifierPublishesTransition(t *testing.T) {
	client := &fakeClient{token: newDoneToken(nil)}
	n := NewMQTTNotifier(client, "almanac/")

	pubID := 8
	err := n.Notify(context.Background(), Transition{
		Action:      ActionPublish,
		ItemID:      7,
		PublishedID: &pubID,
		Slug:        "about-us",
		At:          time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "almanac/items/7/publish", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded Transition
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, ActionPublish, decoded.Action)
	assert.Equal(t, 8, *decoded.PublishedID)
	assert.Equal(t, "about-us", decoded.Slug)
}

func TestMQTTNotifierReturnsBrokerError(t *testing.T) {
	client := &fakeClient{token: newDoneToken(errors.New("not connected"))}
	n := NewMQTTNotifier(client, "almanac")

	err := n.Notify(context.Background(), Transition{Action: ActionUnpublish, ItemID: 1})
	assert.ErrorContains(t, err, "not connected")
}

func TestMQTTNotifierHonoursContext(t *testing.T) {
	client := &fakeClient{token: pendingToken{}}
	n := NewMQTTNotifier(client, "almanac")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.Notify(ctx, Transition{Action: ActionRevert, ItemID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), Transition{}))
}
