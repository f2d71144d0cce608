// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

const disconnectQuiesceMS = 250

// connectMQTT connects to the broker and keeps reconnecting in the
// background if the connection drops later on.
func connectMQTT(broker, clientID string, logger golog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnw("mqtt connection lost", "broker", broker, "error", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		client.Disconnect(0)
		return nil, errors.Errorf("timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", broker)
	}
	logger.Infow("connected to mqtt broker", "broker", broker, "client_id", clientID)
	return client, nil
}

func subscribe(client mqtt.Client, topic string, handler func(payload []byte)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return errors.Wrapf(token.Error(), "subscribing to %s", topic)
}

func publishJSON(client mqtt.Client, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s payload", topic)
	}
	token := client.Publish(topic, 0, retained, payload)
	token.Wait()
	return errors.Wrapf(token.Error(), "publishing %s", topic)
}
