package config

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttConnectWait = 5 * time.Second

// NewMQTT connects to the broker. The client keeps retrying in the
// background, so a broker that is down at startup only delays the native
// location bridge; the error is still returned for logging.
//
// onConnect runs after every successful (re)connect. The session is clean,
// so subscriptions made before a drop are gone by then and onConnect must
// restore them.
func NewMQTT(cfg *Config, onConnect func()) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)
	if onConnect != nil {
		opts.SetOnConnectHandler(func(mqtt.Client) { onConnect() })
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectWait) {
		return client, fmt.Errorf("mqtt connect: no connection to %s after %s", cfg.MQTTBroker, mqttConnectWait)
	}
	if err := token.Error(); err != nil {
		return client, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}
