// ABOUTME: Timecode broadcast wire protocol package
// ABOUTME: Defines protocol messages and WebSocket client
// Package protocol implements the wire protocol spoken by timecode servers.
//
// Messages are JSON envelopes {"type": ..., "payload": ...} sent as
// websocket text frames. A client opens with client/hello, the server
// answers with server/hello describing the decoded signal, then streams
// timecode/frame and signal/state messages until either side leaves.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8928", Name: "monitor"})
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	frame := <-client.Frames
//	fmt.Println(frame.Timecode)
package protocol
