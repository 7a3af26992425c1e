// Package protocol owns the native card command wire contract.
//
// Ownership boundary:
// - ISO 7816-4 wrapping of native commands
// - response status words and status classification
// - little-endian argument primitives shared by command builders
//
// The directory walk itself lives in internal/desfire; this package only
// knows how single exchanges are framed.
package protocol
