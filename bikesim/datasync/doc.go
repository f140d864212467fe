// Package datasync exchanges scalar values with the driving simulator over
// UDP. Values are encoded with Python-struct-style format strings (for
// example "!d" for a single network-order float64, "!ddd" for three), which
// is the convention DYNA4-side Simulink blocks expect.
package datasync
