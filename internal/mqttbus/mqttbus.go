// Package mqttbus implements the MQTT topic contract the server and
// anchor daemon speak: anchor-to-server RF event reports, the MQRPC
// transport envelope, and the server's solved-coordinate broadcast.
package mqttbus

import "fmt"

// Handler is invoked with the topic a message arrived on and its raw
// payload.
type Handler func(topic string, payload []byte)

// Bus abstracts the MQTT operations this package needs so the topic
// logic can be tested without a broker. PahoBus is the production
// implementation.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, h Handler) error
	Unsubscribe(topic string) error
}

// RFTopic returns the anchor-to-server RF event topic for a domain and
// anchor EUI64 string.
func RFTopic(domain, anchorEUI64 string) string {
	return fmt.Sprintf("TAIL/RF/%s/%s", domain, anchorEUI64)
}

// RPCTopic returns the RPC transport topic for a given peer id.
func RPCTopic(peerID string) string {
	return fmt.Sprintf("TAIL/RPC/%s", peerID)
}

// RPCBroadcastTopic is the RPC topic every peer subscribes to for
// fire-and-forget broadcasts.
const RPCBroadcastTopic = "TAIL/RPC/BROADCAST"

// CoordTopic returns the server-to-subscriber solved-coordinate topic
// for a domain and tag EUI64 string.
func CoordTopic(domain, tagEUI64 string) string {
	return fmt.Sprintf("TAIL/TAG/%s/%s/COORD", domain, tagEUI64)
}
