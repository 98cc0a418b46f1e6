// Package voice implements real-time voice conversations.
//
// A Session ties together four collaborators: a DeviceOpener producing
// microphone frames, a Connector dialing the realtime transport, a
// CapturePipeline encoding outbound audio, and a Scheduler playing
// inbound audio through a Sink.
//
// Session lifecycle:
//
//	idle -> connecting -> active -> closed
//	          |             |
//	          +--> error <--+
//
// Closed and error are terminal. A session is single-use; callers that
// want to reconnect create a new Session.
//
// Audio flows in two directions with different shapes: capture is
// 16 kHz mono 16-bit PCM sent as base64 media frames, playback is
// 24 kHz mono 16-bit PCM scheduled gaplessly on the output timeline.
package voice
