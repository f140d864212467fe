package bikesim

import "fmt"

// Metrics aggregates statistics about a scenario run for final reporting.
type Metrics struct {
	Steps             int            // simulation steps processed
	EgoUpdates        int            // ego position updates received from the driving simulator
	TriggerEntries    int            // trigger ENTRY events observed
	TriggerExits      int            // trigger EXIT events observed
	ConflictsDeployed int            // conflict vehicles inserted
	FlowVehicles      map[string]int // vehicles inserted per flow
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{FlowVehicles: make(map[string]int)}
}

// CountEvents tallies trigger events from a CheckTriggers result.
func (m *Metrics) CountEvents(events map[string]TriggerEvent) {
	for _, e := range events {
		switch e {
		case Entry:
			m.TriggerEntries++
		case Exit:
			m.TriggerExits++
		}
	}
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print() {
	fmt.Println("=== Scenario Metrics ===")
	fmt.Printf("Simulation Steps     : %d\n", m.Steps)
	fmt.Printf("Ego Updates Received : %d\n", m.EgoUpdates)
	fmt.Printf("Trigger Entries      : %d\n", m.TriggerEntries)
	fmt.Printf("Trigger Exits        : %d\n", m.TriggerExits)
	fmt.Printf("Conflicts Deployed   : %d\n", m.ConflictsDeployed)
	total := 0
	for _, n := range m.FlowVehicles {
		total += n
	}
	fmt.Printf("Flow Vehicles        : %d\n", total)
	for name, n := range m.FlowVehicles {
		fmt.Printf("  %-18s : %d\n", name, n)
	}
}
