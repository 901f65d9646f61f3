// Package messaging carries action messages between the assistant, the pages
// it drives, and connected websocket clients.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/store"
)

// Channel is the broadcast channel name shared with pages and clients
const Channel = "shop-assistant"

// Action names what a message asks the receiver to do
type Action string

const (
	ActionUpdateSettings  Action = "updateSettings"
	ActionTriggerAutoFill Action = "triggerAutoFill"
	ActionSkipWaiting     Action = "skipWaiting"
)

// Message is the {action, data} envelope
type Message struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data into a message; nil data leaves Data empty
func NewMessage(action Action, data interface{}) (Message, error) {
	msg := Message{Action: action}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", action, err)
	}
	msg.Data = raw
	return msg, nil
}

// Decode unmarshals the message payload into v
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no data", m.Action)
	}
	return json.Unmarshal(m.Data, v)
}

// Sink receives broadcast messages
type Sink interface {
	PostMessage(ctx context.Context, msg Message) error
}

// Notifier fans a message out to every registered sink
type Notifier struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewNotifier creates a notifier over sinks
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// Add registers another sink
func (n *Notifier) Add(sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// Remove unregisters sink
func (n *Notifier) Remove(sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.sinks {
		if s == sink {
			n.sinks = append(n.sinks[:i:i], n.sinks[i+1:]...)
			return
		}
	}
}

// PostMessage delivers msg to every sink. A failing sink does not stop the
// others; all failures are returned joined.
func (n *Notifier) PostMessage(ctx context.Context, msg Message) error {
	n.mu.RLock()
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.RUnlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.PostMessage(ctx, msg); err != nil {
			logging.Warn("Failed to deliver %s message: %v", msg.Action, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpdateSettings announces new settings to sink
func UpdateSettings(ctx context.Context, sink Sink, settings store.Settings) error {
	msg, err := NewMessage(ActionUpdateSettings, settings)
	if err != nil {
		return err
	}
	return sink.PostMessage(ctx, msg)
}

// TriggerAutoFill asks the pages behind sink to fill with profile
func TriggerAutoFill(ctx context.Context, sink Sink, profile store.Profile) error {
	msg, err := NewMessage(ActionTriggerAutoFill, profile)
	if err != nil {
		return err
	}
	return sink.PostMessage(ctx, msg)
}
