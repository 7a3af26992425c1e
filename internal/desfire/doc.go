// Package desfire walks a card's application and file directory and builds
// the immutable card model.
//
// Ownership boundary:
// - Session.Dump: connect, enumerate, read, close
// - per-file fault isolation (Unauthorized / Invalid content)
// - settings and file payload decoding
//
// Wire framing is internal/protocol; the channel is internal/transport.
package desfire
