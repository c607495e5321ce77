// Package mqtt publishes the state of all fans to an MQTT broker and accepts speed commands.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/ui"
)

const (
	qos = 1

	quiesceMillis = 250
)

type Fan interface {
	GetId() string
	GetSpeed() int
	GetLastRpm() int64
	SetSpeed(speed int) error
}

type Bridge struct {
	client paho.Client
	prefix string
	fans   map[string]Fan
}

// Connect opens a connection to the configured broker
func Connect(config configuration.MqttConfig) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientId).
		SetAutoReconnect(true).
		// speed commands block for the duration of a ramp
		SetOrderMatters(false)

	if len(config.Username) > 0 {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("cannot connect to mqtt broker %s: %w", config.Broker, token.Error())
	}
	return client, nil
}

func NewBridge(client paho.Client, prefix string, fanList []Fan) *Bridge {
	fanMap := map[string]Fan{}
	for _, fan := range fanList {
		fanMap[fan.GetId()] = fan
	}
	return &Bridge{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		fans:   fanMap,
	}
}

func (b *Bridge) RpmTopic(fanId string) string {
	return fmt.Sprintf("%s/%s/rpm", b.prefix, fanId)
}

func (b *Bridge) SpeedTopic(fanId string) string {
	return fmt.Sprintf("%s/%s/speed", b.prefix, fanId)
}

func (b *Bridge) SpeedSetTopic(fanId string) string {
	return b.SpeedTopic(fanId) + "/set"
}

// Subscribe registers the speed command handler of every fan
func (b *Bridge) Subscribe() error {
	for id, fan := range b.fans {
		f := fan
		topic := b.SpeedSetTopic(id)
		token := b.client.Subscribe(topic, qos, func(client paho.Client, msg paho.Message) {
			b.HandleSpeedCommand(f, msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("could not subscribe to topic %s: %w", topic, token.Error())
		}
		ui.Debug("Subscribed to %s", topic)
	}
	return nil
}

// HandleSpeedCommand applies a speed command payload to the given fan.
// Invalid payloads and rejected commands are logged and dropped.
func (b *Bridge) HandleSpeedCommand(fan Fan, payload []byte) {
	value := strings.TrimSpace(string(payload))
	speed, err := strconv.Atoi(value)
	if err != nil {
		ui.Warning("Ignoring invalid speed command for fan %s: '%s'", fan.GetId(), value)
		return
	}

	err = fan.SetSpeed(speed)
	if err != nil {
		if errors.Is(err, fans.ErrRange) || errors.Is(err, fans.ErrPrecondition) {
			ui.Warning("Ignoring speed command for fan %s: %v", fan.GetId(), err)
		} else {
			ui.Error("Error setting speed of fan %s: %v", fan.GetId(), err)
		}
		return
	}

	if err = b.publish(b.SpeedTopic(fan.GetId()), strconv.Itoa(fan.GetSpeed())); err != nil {
		ui.Warning("%v", err)
	}
}

// Publish sends the current speed and the last measured rpm of the given fan as retained messages
func (b *Bridge) Publish(fan Fan) error {
	err := b.publish(b.SpeedTopic(fan.GetId()), strconv.Itoa(fan.GetSpeed()))
	if err != nil {
		return err
	}
	return b.publish(b.RpmTopic(fan.GetId()), strconv.FormatInt(fan.GetLastRpm(), 10))
}

// PublishAll publishes the state of every fan, failures are logged
func (b *Bridge) PublishAll() {
	for _, fan := range b.fans {
		if err := b.Publish(fan); err != nil {
			ui.Warning("%v", err)
		}
	}
}

func (b *Bridge) publish(topic string, payload string) error {
	token := b.client.Publish(topic, qos, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("could not publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Run subscribes to the command topics and publishes the state of all fans with the given rate
// until the context is cancelled.
func (b *Bridge) Run(ctx context.Context, publishRate time.Duration) error {
	if err := b.Subscribe(); err != nil {
		return err
	}
	defer b.unsubscribe()

	b.PublishAll()

	tick := time.NewTicker(publishRate)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			b.PublishAll()
		}
	}
}

func (b *Bridge) unsubscribe() {
	var topics []string
	for id := range b.fans {
		topics = append(topics, b.SpeedSetTopic(id))
	}
	if len(topics) == 0 {
		return
	}
	token := b.client.Unsubscribe(topics...)
	token.WaitTimeout(time.Duration(quiesceMillis) * time.Millisecond)
}

// Close disconnects from the broker
func (b *Bridge) Close() {
	b.client.Disconnect(quiesceMillis)
}
