// Package pairing implements the short-range provisioning channel to a
// factory-fresh controller.
//
// # Link Model
//
// The platform's radio bridge hands this package a byte stream (net.Conn)
// to the device's pairing radio. A DeviceHandle abstracts that hand-off so
// tests and the simulator can substitute plain TCP or in-memory pipes.
//
// # Wire Protocol
//
// Every message is a frame: a 4-byte big-endian length prefix followed by a
// CBOR-encoded body, at most 64 KiB. The device exposes characteristics,
// each a UUID with property bits (write, read, notify). Operations:
//
//   - describe: enumerate characteristics
//   - write: deliver a value to one characteristic
//   - notification: the device pushes a value from one characteristic
//
// # Provisioning Flow
//
//  1. Dial opens the link and enumerates characteristics.
//  2. Exactly one writable command characteristic must exist; at most one
//     readable/notifying result characteristic may exist.
//  3. SendCredentials writes the configure-network payload (opcode 0x01,
//     length-prefixed network name and secret) to the command
//     characteristic.
//  4. When a result characteristic exists, the device's verdict arrives as
//     a notification: a status byte (accepted, rejected, busy) optionally
//     followed by the device's IPv4 address.
//  5. A silent grace window after a confirmed write is success: older
//     firmware reboots into join without reporting.
//
// # Outcome Mapping
//
// SendCredentials classifies every outcome as a transport.Result so the
// orchestrator can choose retry, fallback, or operator guidance.
package pairing
