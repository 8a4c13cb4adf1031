package sensor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultAlarmTopic is the MQTT topic carrying UPS power alarm messages.
const DefaultAlarmTopic = "power/alarms"

// alarmMessage is the shape of messages on the power alarm topic.
type alarmMessage struct {
	Up bool `json:"up"`
}

// MQTTSource reads power status from a UPS power-alarm MQTT topic. It caches
// the most recent message; Read returns an error when no message has arrived
// yet or the cached value is older than maxAge (the upstream publisher is
// presumed dead, which is not evidence that power is down).
type MQTTSource struct {
	client paho.Client
	topic  string
	maxAge time.Duration

	mu       sync.Mutex
	up       bool
	received bool
	lastAt   time.Time

	now func() time.Time
}

// NewMQTTSource connects to the broker and subscribes to the alarm topic.
func NewMQTTSource(broker, topic string, maxAge time.Duration) (*MQTTSource, error) {
	if topic == "" {
		topic = DefaultAlarmTopic
	}

	s := &MQTTSource{
		topic:  topic,
		maxAge: maxAge,
		now:    time.Now,
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("power-watch").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Re-subscribe after every (re)connect.
			c.Subscribe(topic, 1, s.onMessage)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	s.client = client
	return s, nil
}

func (s *MQTTSource) onMessage(_ paho.Client, msg paho.Message) {
	var alarm alarmMessage
	if err := json.Unmarshal(msg.Payload(), &alarm); err != nil {
		// Malformed payloads are dropped; staleness will surface the problem.
		return
	}
	s.observe(alarm.Up, s.now())
}

func (s *MQTTSource) observe(up bool, at time.Time) {
	s.mu.Lock()
	s.up = up
	s.received = true
	s.lastAt = at
	s.mu.Unlock()
}

// Read returns the most recent alarm value.
func (s *MQTTSource) Read() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.received {
		return false, fmt.Errorf("no alarm message received yet on %s", s.topic)
	}
	if s.maxAge > 0 {
		if age := s.now().Sub(s.lastAt); age > s.maxAge {
			return false, fmt.Errorf("alarm reading stale (%v old, max %v)", age.Truncate(time.Second), s.maxAge)
		}
	}
	return s.up, nil
}

// IsConnected reports whether the MQTT connection is active.
func (s *MQTTSource) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	if s.client != nil {
		s.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
