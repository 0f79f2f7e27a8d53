package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/provider"
)

var _ provider.Provider = (*Bridge)(nil)

const (
	permissionRequestTopic = "/device/%s/permission/request"
	permissionTopic        = "/device/%s/permission"
	watchTopic             = "/device/%s/watch"
	locationTopic          = "/device/%s/location"

	qos          = 1
	clearTimeout = 2 * time.Second
)

var ErrBridgeUnavailable = errors.New("native bridge: mqtt client not connected")

type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type permissionRequest struct {
	RequestID string `json:"request_id"`
}

type permissionMessage struct {
	RequestID string `json:"request_id"`
	Location  string `json:"location"`
}

type watchControl struct {
	WatchID            string `json:"watch_id"`
	Action             string `json:"action"`
	EnableHighAccuracy bool   `json:"enable_high_accuracy,omitempty"`
	TimeoutMs          int64  `json:"timeout_ms,omitempty"`
	MaximumAgeMs       int64  `json:"maximum_age_ms,omitempty"`
}

// Bridge is the native location provider: a device runtime that exposes
// its geolocation plugin over MQTT topics scoped to one device id.
type Bridge struct {
	client   client
	deviceID string
	log      *slog.Logger

	mu      sync.Mutex
	watchID string
	opts    domain.WatchOptions
	sink    provider.Sink
	// ids started on the device and not yet stopped
	issued map[string]struct{}
}

func NewBridge(client client, deviceID string, log *slog.Logger) *Bridge {
	return &Bridge{client: client, deviceID: deviceID, log: log, issued: map[string]struct{}{}}
}

func (b *Bridge) Name() string {
	return "native"
}

// RequestPermission asks the device runtime for location permission and
// waits for its answer. Anything other than "granted" counts as denied.
func (b *Bridge) RequestPermission(ctx context.Context) (domain.Permission, error) {
	if !b.client.IsConnected() {
		return "", ErrBridgeUnavailable
	}

	requestID := uuid.NewString()
	replies := make(chan domain.Permission, 1)
	topic := fmt.Sprintf(permissionTopic, b.deviceID)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var raw permissionMessage
		if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
			b.log.Warn("invalid permission message", "topic", msg.Topic(), "error", err)
			return
		}
		if raw.RequestID != requestID {
			return
		}
		perm, err := domain.ParsePermission(raw.Location)
		if err != nil {
			b.log.Warn("invalid permission state", "state", raw.Location, "error", err)
			return
		}
		select {
		case replies <- perm:
		default:
		}
	}

	if err := wait(ctx, b.client.Subscribe(topic, qos, handler)); err != nil {
		return "", fmt.Errorf("subscribe permission: %w", err)
	}
	defer b.client.Unsubscribe(topic)

	payload, err := json.Marshal(permissionRequest{RequestID: requestID})
	if err != nil {
		return "", fmt.Errorf("marshal permission request: %w", err)
	}
	if err := wait(ctx, b.client.Publish(fmt.Sprintf(permissionRequestTopic, b.deviceID), qos, false, payload)); err != nil {
		return "", fmt.Errorf("publish permission request: %w", err)
	}

	select {
	case perm := <-replies:
		if perm != domain.PermissionStateGranted {
			return domain.PermissionStateDenied, nil
		}
		return perm, nil
	case <-ctx.Done():
		return "", fmt.Errorf("await permission: %w", ctx.Err())
	}
}

func (b *Bridge) Watch(ctx context.Context, opts domain.WatchOptions, sink provider.Sink) (provider.WatchID, error) {
	if !b.client.IsConnected() {
		return "", ErrBridgeUnavailable
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.watchID, b.opts, b.sink = id, opts, sink
	b.issued[id] = struct{}{}
	b.mu.Unlock()

	topic := fmt.Sprintf(locationTopic, b.deviceID)
	if err := wait(ctx, b.client.Subscribe(topic, qos, b.handleMessage)); err != nil {
		b.forget(id)
		return "", fmt.Errorf("subscribe location: %w", err)
	}

	if err := b.publishControl(ctx, startControl(id, opts)); err != nil {
		if b.forget(id) {
			b.client.Unsubscribe(topic)
		}
		return "", fmt.Errorf("start watch: %w", err)
	}

	return provider.WatchID(id), nil
}

// Resubscribe restores the location subscription and restarts the active
// watch on the device. The client calls it after every (re)connect, since a
// clean session drops subscriptions.
func (b *Bridge) Resubscribe(ctx context.Context) error {
	b.mu.Lock()
	id, opts := b.watchID, b.opts
	b.mu.Unlock()
	if id == "" {
		return nil
	}

	if err := wait(ctx, b.client.Subscribe(fmt.Sprintf(locationTopic, b.deviceID), qos, b.handleMessage)); err != nil {
		return fmt.Errorf("resubscribe location: %w", err)
	}
	if err := b.publishControl(ctx, startControl(id, opts)); err != nil {
		return fmt.Errorf("restart watch: %w", err)
	}
	b.log.Info("native watch resubscribed", "watch_id", id)
	return nil
}

func startControl(id string, opts domain.WatchOptions) watchControl {
	return watchControl{
		WatchID:            id,
		Action:             "start",
		EnableHighAccuracy: opts.HighAccuracy,
		TimeoutMs:          opts.Timeout.Milliseconds(),
		MaximumAgeMs:       opts.MaximumAge.Milliseconds(),
	}
}

// ClearWatch tells the device to stop the watch. The location
// subscription is dropped only when id is the active watch; a superseded
// id still gets its stop control. Unknown ids are ignored.
func (b *Bridge) ClearWatch(id provider.WatchID) error {
	b.mu.Lock()
	_, known := b.issued[string(id)]
	b.mu.Unlock()
	if !known {
		return nil
	}
	active := b.forget(string(id))

	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()

	var errs []error
	if err := b.publishControl(ctx, watchControl{WatchID: string(id), Action: "stop"}); err != nil {
		errs = append(errs, fmt.Errorf("stop watch: %w", err))
	}
	if active {
		if err := wait(ctx, b.client.Unsubscribe(fmt.Sprintf(locationTopic, b.deviceID))); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe location: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw provider.PositionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		b.log.Warn("invalid location message", "topic", msg.Topic(), "error", err)
		return
	}

	b.mu.Lock()
	watchID, sink := b.watchID, b.sink
	b.mu.Unlock()

	if sink == nil || raw.WatchID != watchID {
		return
	}

	ev, err := raw.Event(b.Name())
	if err != nil {
		b.log.Warn("location message rejected", "watch_id", raw.WatchID, "error", err)
		return
	}
	sink(ev)
}

func (b *Bridge) publishControl(ctx context.Context, ctrl watchControl) error {
	payload, err := json.Marshal(ctrl)
	if err != nil {
		return fmt.Errorf("marshal watch control: %w", err)
	}
	return wait(ctx, b.client.Publish(fmt.Sprintf(watchTopic, b.deviceID), qos, false, payload))
}

// forget drops id from the issued set and reports whether it was the
// active watch.
func (b *Bridge) forget(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.issued, id)
	if b.watchID == "" || b.watchID != id {
		return false
	}
	b.watchID, b.sink = "", nil
	return true
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
