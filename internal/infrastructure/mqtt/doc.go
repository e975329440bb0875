// Package mqtt provides MQTT event publishing for the watering engine.
//
// The engine publishes watering decisions and session transitions so that
// dashboards and other consumers can follow what the scheduler is doing
// without polling the HTTP API.
//
// # Topics
//
//	waterd/event/decision/{zone}   one message per evaluation cycle
//	waterd/event/session/{zone}    session started/stopped/reconciled
//	waterd/system/status           retained online/offline status (LWT backed)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DecisionEvent("zone-garden")
//	err = client.Publish(topic, payload, 1, false)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Publishing is best-effort from the caller's perspective: the scheduler
// logs publish failures but never fails an invocation because of them.
// The paho client reconnects automatically with exponential backoff.
package mqtt
