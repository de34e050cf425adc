// Package yeelight speaks the Yeelight LAN control protocol.
//
// Yeelight bulbs with "LAN Control" enabled accept JSON-RPC commands on
// TCP port 55443, one JSON object per line terminated with CRLF:
//
//	→ {"id":1,"method":"get_prop","params":["power"]}
//	← {"id":1,"result":["on"]}
//
// The client dials per call: bulbs drop idle connections and limit the
// number of concurrent clients, so holding a connection open buys
// nothing. Every call is bounded by the configured timeout and the
// caller's context. Bulbs also push unsolicited notification lines
// (method "props"); the client skips anything that does not carry the
// request id.
package yeelight
