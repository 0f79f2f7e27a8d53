package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Simulates the device runtime behind the native location bridge: answers
// permission requests, honours watch start/stop and streams fixes that
// drift around the sample potholes.

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
	EnableHighAccuracy bool   `json:"enable_high_accuracy"`
	TimeoutMs          int64  `json:"timeout_ms"`
	MaximumAgeMs       int64  `json:"maximum_age_ms"`
}

type coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

type locationMessage struct {
	WatchID   string  `json:"watch_id"`
	Coords    *coords `json:"coords"`
	Timestamp int64   `json:"timestamp"`
}

var potholes = [][2]float64{
	{-6.2088, 106.8456},
	{-6.2100, 106.8470},
}

type device struct {
	mu      sync.Mutex
	watchID string
	highAcc bool
}

func (d *device) current() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watchID, d.highAcc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := getEnv("MQTT_BROKER", "tcp://localhost:1883")
	deviceID := getEnv("DEVICE_ID", "device-1")
	permission := getEnv("SIM_PERMISSION", "granted")

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("pothole-device-sim-" + deviceID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	dev := &device{}

	permTopic := fmt.Sprintf("/device/%s/permission/request", deviceID)
	token := client.Subscribe(permTopic, 1, func(c mqtt.Client, msg mqtt.Message) {
		var req permissionRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			log.Printf("invalid permission request: %v", err)
			return
		}
		reply, _ := json.Marshal(permissionMessage{RequestID: req.RequestID, Location: permission})
		c.Publish(fmt.Sprintf("/device/%s/permission", deviceID), 1, false, reply)
		log.Printf("permission %s for request %s", permission, req.RequestID)
	})
	if token.Wait() && token.Error() != nil {
		log.Fatalf("subscribe %s: %v", permTopic, token.Error())
	}

	watchTopic := fmt.Sprintf("/device/%s/watch", deviceID)
	token = client.Subscribe(watchTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var ctrl watchControl
		if err := json.Unmarshal(msg.Payload(), &ctrl); err != nil {
			log.Printf("invalid watch control: %v", err)
			return
		}
		dev.mu.Lock()
		defer dev.mu.Unlock()
		switch ctrl.Action {
		case "start":
			dev.watchID, dev.highAcc = ctrl.WatchID, ctrl.EnableHighAccuracy
			log.Printf("watch %s started (high accuracy %v)", ctrl.WatchID, ctrl.EnableHighAccuracy)
		case "stop":
			if dev.watchID == ctrl.WatchID {
				dev.watchID = ""
				log.Printf("watch %s stopped", ctrl.WatchID)
			}
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Fatalf("subscribe %s: %v", watchTopic, token.Error())
	}

	log.Printf("device %s connected to %s, publishing every %ds while watched...", deviceID, broker, intervalSec)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	locTopic := fmt.Sprintf("/device/%s/location", deviceID)
	for {
		select {
		case <-sig:
			log.Println("shutting down")
			return
		case <-ticker.C:
		}

		watchID, highAcc := dev.current()
		if watchID == "" {
			continue
		}

		p := potholes[rand.Intn(len(potholes))]
		drift := 0.0005 // ~50m
		// 30% chance to pass right over a pothole
		if rand.Float64() < 0.3 {
			drift = 0.0001
		}
		accuracy := 25.0
		if highAcc {
			accuracy = 5
		}

		msg := locationMessage{
			WatchID: watchID,
			Coords: &coords{
				Latitude:  p[0] + (rand.Float64()-0.5)*drift,
				Longitude: p[1] + (rand.Float64()-0.5)*drift,
				Accuracy:  accuracy,
			},
			Timestamp: time.Now().UnixMilli(),
		}

		payload, _ := json.Marshal(msg)
		token := client.Publish(locTopic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", locTopic, payload)
	}
}
