// Package traci implements a client for the TraCI remote-control protocol
// spoken by SUMO.
//
// # Reading Guide
//
// Start with these files to understand the client:
//   - protocol.go: message framing, type codes, and the low-level
//     reader/writer used to encode and decode commands
//   - client.go: connection lifecycle (Dial, SetOrder, SimulationStep, Close)
//     and the request/response round trip
//
// Domain commands are grouped the way SUMO groups them:
//   - simulation.go: simulation clock queries (Time, DeltaT)
//   - vehicle.go: vehicle state queries and control commands
//   - route.go: route registration and queries
//   - lane.go: lane geometry and permission queries
//
// # Wire Format
//
// A TraCI message is a 4-byte big-endian total length (including itself)
// followed by one or more commands. Each command carries a 1-byte length
// (or a 0 byte plus a 4-byte extended length for large payloads), a 1-byte
// command identifier, and the payload. The server acknowledges every command
// with a status result; get-commands additionally return a response command
// carrying a typed value.
package traci
