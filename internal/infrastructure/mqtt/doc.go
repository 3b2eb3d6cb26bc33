// Package mqtt publishes sqlez lifecycle events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Wildcard subscriptions for watching events
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
//	{prefix}/status          retained {"status":"online"|"offline",...}
//	{prefix}/events/{kind}   one JSON message per lifecycle event
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for any broker off the local host
//   - Credentials should come from SQLEZ_MQTT_USERNAME and SQLEZ_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Event("backup"), event)
package mqtt
