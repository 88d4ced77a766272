// Package capture provides camera sources and the frame encoder used by the
// frame streamer.
//
// A Device is acquired with Open and owned by exactly one caller until Close.
// Opening a source that is already held returns ErrDeviceBusy.
//
// Sources:
//
//   - "synthetic": a generated test pattern with a face-like marker that
//     drifts up and down
//   - "dir:<path>": cycles through the .png/.jpg/.jpeg files in path
//   - "none": no camera; always ErrDeviceNotFound
//
// Devices signal readiness through Ready(); callers wait on that channel once
// instead of polling, then check Err() to learn whether start-up succeeded.
package capture
