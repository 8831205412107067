// Package mqtt provides the MQTT client used by the visualiser.
//
// The broker is optional. When enabled, the client carries three kinds of
// traffic:
//
//	devspace/space/device/{id}/status   retained device status, published
//	devspace/space/event/{type}         space events (added, deleted, ...)
//	devspace/remote/output              console output pushed by a board
//
// plus a retained online/offline message on devspace/system/status, with
// a Last Will so an unexpected disconnect is visible to other clients.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.RemoteOutput(), 1,
//	    func(topic string, payload []byte) error {
//	        feed(string(payload))
//	        return nil
//	    })
//
// Connections auto-reconnect with exponential backoff and subscriptions
// are restored after each reconnect.
package mqtt
