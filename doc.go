// Package cansim simulates a shared CAN-like serial bus in process.
//
// It includes:
//   - A core Frame type with validation and binary marshaling helpers
//   - A pure bit encoder mapping frames to dominant/recessive bus levels
//   - A Bus engine that replays queued frames bit by bit in real time
//     while concurrent readers observe the bus level and history
//   - An ID#DATA descriptor parser for building frames from text
//
// The simulation models successful, uncontested single-frame
// transmission only: no bit-stuffing, no real CRC, no arbitration.
package cansim
