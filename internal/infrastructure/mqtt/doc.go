// Package mqtt provides MQTT client connectivity for the Tuya CE core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS and retain control
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Availability via a retained online/offline status and Last Will
//
// # Architecture
//
// The broker sits between the Tuya device listener, this service and Home
// Assistant:
//
//	device listener → {prefix}/device/{id}/{descriptor|status|removed} → core
//	core → homeassistant/{platform}/{prefix}_{id}/{key}/config (retained)
//	core → {prefix}/state/{id}/{key} (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllDeviceStatus(), 1,
//	    func(topic string, payload []byte) error {
//	        return bridge.HandleStatus(topic, payload)
//	    })
package mqtt
