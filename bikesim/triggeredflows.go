package bikesim

import (
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// triggeredFlow binds one DynamicFlow to its enabling and disabling
// triggers.
type triggeredFlow struct {
	flow             *DynamicFlow
	enableTriggerID  string
	disableTriggerID string
	enableEvent      TriggerEvent
	disableEvent     TriggerEvent
}

// TriggeredFlows connects Trigger state changes to DynamicFlow enable and
// disable transitions. Each step it checks all triggers against the ego
// position, toggles the bound flows on matching events, and runs every
// flow.
type TriggeredFlows struct {
	triggers []*Trigger
	flows    []triggeredFlow

	// LastEvents holds the trigger events observed by the most recent Run
	// with a known ego position.
	LastEvents map[string]TriggerEvent
}

// NewTriggeredFlows creates a TriggeredFlows over all triggers in the
// simulation.
func NewTriggeredFlows(triggers []*Trigger) *TriggeredFlows {
	return &TriggeredFlows{triggers: triggers}
}

// Add binds a flow to an enabling and a disabling trigger. Zero-valued
// events default to Entry.
func (tf *TriggeredFlows) Add(flow *DynamicFlow, enableTriggerID, disableTriggerID string, enableEvent, disableEvent TriggerEvent) {
	if enableEvent == NoChange {
		enableEvent = Entry
	}
	if disableEvent == NoChange {
		disableEvent = Entry
	}
	tf.flows = append(tf.flows, triggeredFlow{
		flow:             flow,
		enableTriggerID:  enableTriggerID,
		disableTriggerID: disableTriggerID,
		enableEvent:      enableEvent,
		disableEvent:     disableEvent,
	})
}

// Run checks triggers against the ego position and runs every flow. A nil
// point skips the trigger checks (the ego position is not known every
// step); flows still run with their current enabled state.
func (tf *TriggeredFlows) Run(point *orb.Point) error {
	if point != nil {
		states := CheckTriggers(tf.triggers, *point)
		tf.LastEvents = states
		for i := range tf.flows {
			b := &tf.flows[i]
			if states[b.enableTriggerID] == b.enableEvent {
				logrus.Infof("flow %s enabled by trigger %s", b.flow.Name, b.enableTriggerID)
				b.flow.Enable()
			}
			if states[b.disableTriggerID] == b.disableEvent {
				logrus.Infof("flow %s disabled by trigger %s", b.flow.Name, b.disableTriggerID)
				b.flow.Disable()
			}
		}
	}
	for i := range tf.flows {
		if err := tf.flows[i].flow.Run(); err != nil {
			return err
		}
	}
	return nil
}
