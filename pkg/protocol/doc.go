// Package protocol defines the JSON frames exchanged with the Synthetic
// Selection engine over its WebSocket endpoint.
//
// Outbound (client -> engine):
//
//	{"type":"Authenticate","data":{"token":"..."}}
//	{"type":"SynchronizeModel","data":{"modelName":"...","modelData":"<base64>"}}
//
// Inbound (engine -> client):
//
//	{"type":"Authenticated"}
//	{"type":"SyncSuccess","modelName":"..."}
//	{"type":"Error","errorType":"..."}
//
// Changing these shapes breaks compatibility with released engines.
package protocol
