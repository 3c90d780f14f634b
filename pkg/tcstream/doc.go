// ABOUTME: Timecode broadcast server package
// ABOUTME: Serves decoded LTC frames to websocket clients
// Package tcstream decodes linear timecode from an audio source and
// broadcasts every frame to connected websocket clients.
//
// Clients speak the JSON protocol defined in pkg/protocol: they send
// client/hello, receive server/hello and the current signal/state, and
// then a timecode/frame message per decoded frame.
//
// Example:
//
//	server, err := tcstream.NewServer(tcstream.ServerConfig{
//	    Source:     capture, // any Source, e.g. a sound card reader
//	    FPS:        25,
//	    EnableMDNS: true,
//	})
//	err = server.Start()
package tcstream
