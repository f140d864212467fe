// Package bikesim coordinates a SUMO traffic micro-simulation with an
// external driving simulator in bicycle-simulation experiments.
//
// # Reading Guide
//
// Start with these three files to understand the toolkit:
//   - client.go: the step-loop client driving a SUMO connection
//   - trigger.go: polygon entry/exit detection for the ego vehicle
//   - scenario.go: the YAML scenario layer wiring triggers, flows, and
//     conflict vehicles together
//
// # Architecture
//
// The ego vehicle (the human-driven bicycle) lives in the driving simulator
// and is mirrored into SUMO, where detectors cannot see it. The toolkit
// therefore watches the ego position itself and scripts the surrounding
// traffic:
//   - flow.go: probabilistic vehicle injection with a weighted type mix
//   - conflict.go, multiconflict.go: vehicles servo-controlled to meet the
//     ego vehicle at target points
//   - signal.go: blinker patterns on simulated vehicles
//   - routetools.go: departure-position and lane-permission helpers
//
// Sub-packages own the two external interfaces:
//   - bikesim/traci: the TraCI TCP protocol client for SUMO
//   - bikesim/datasync: the UDP scalar side channel to the driving simulator
//
// Components accept small interfaces describing the SUMO commands they need;
// *traci.Client satisfies all of them, and tests substitute fakes.
package bikesim
