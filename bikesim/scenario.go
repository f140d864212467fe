package bikesim

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// ScenarioAPI is the combined SUMO command surface a scenario needs.
// *traci.Client satisfies it.
type ScenarioAPI interface {
	FlowAPI
	ConflictAPI
}

// ScenarioSpec is the top-level scenario configuration. Loaded from YAML
// via LoadScenario(path).
type ScenarioSpec struct {
	Seed            ScenarioSeed  `yaml:"seed"`
	Sumo            SumoSpec      `yaml:"sumo"`
	DataSync        *DataSyncSpec `yaml:"datasync,omitempty"`
	AdditionalsFile string        `yaml:"additionals_file,omitempty"`
	TriggerType     string        `yaml:"trigger_type,omitempty"` // poly type attribute (default "trigger")
	TargetType      string        `yaml:"target_type,omitempty"`  // poi type attribute (default "target")

	Flows          []FlowSpec          `yaml:"flows,omitempty"`
	TriggeredFlows []TriggeredFlowSpec `yaml:"triggered_flows,omitempty"`
	Conflicts      []ConflictSpec      `yaml:"conflicts,omitempty"`
}

// SumoSpec describes the TraCI connection.
type SumoSpec struct {
	Addr  string `yaml:"addr"`  // TraCI server host:port
	Order int    `yaml:"order"` // multi-client connection order (default 1)
}

// DataSyncSpec describes the UDP side channel to the driving simulator.
type DataSyncSpec struct {
	ListenAddr string `yaml:"listen_addr"`           // where ego updates arrive
	Format     string `yaml:"format"`                // ego update format (default "!ddd": x, y, speed)
	SendIP     string `yaml:"send_ip,omitempty"`     // where to echo the simulation clock
	SendPorts  []int  `yaml:"send_ports,omitempty"`  //
	SendFormat string `yaml:"send_format,omitempty"` // clock format (default "!d")
	Broadcast  bool   `yaml:"broadcast,omitempty"`
}

// FlowSpec declares one dynamic flow.
type FlowSpec struct {
	Name         string             `yaml:"name,omitempty"`
	Origin       string             `yaml:"origin"`
	Destination  string             `yaml:"destination"`
	Probability  float64            `yaml:"probability"`
	VehicleMix   map[string]float64 `yaml:"vehicle_mix,omitempty"`
	DepartSpeed  string             `yaml:"depart_speed,omitempty"`
	ArrivalSpeed string             `yaml:"arrival_speed,omitempty"`
	Via          string             `yaml:"via,omitempty"`
	Disabled     bool               `yaml:"disabled,omitempty"`
}

// TriggeredFlowSpec binds a flow to its enabling and disabling triggers.
type TriggeredFlowSpec struct {
	Flow           string `yaml:"flow"`
	EnableTrigger  string `yaml:"enable_trigger"`
	EnableEvent    string `yaml:"enable_event,omitempty"`  // ENTRY (default) or EXIT
	DisableTrigger string `yaml:"disable_trigger"`
	DisableEvent   string `yaml:"disable_event,omitempty"` // ENTRY (default) or EXIT
}

// ConflictSpec declares one conflict vehicle. The ego target is either a
// POI id from the additionals file (target_poi) or an explicit [x, y]
// coordinate (target).
type ConflictSpec struct {
	Name         string    `yaml:"name"`
	Type         string    `yaml:"type,omitempty"`
	Route        string    `yaml:"route"`
	TargetPOI    string    `yaml:"target_poi,omitempty"`
	Target       []float64 `yaml:"target,omitempty"`
	TargetOffset float64   `yaml:"target_offset,omitempty"`
	ReleasePoint float64   `yaml:"release_point,omitempty"`
}

// LoadScenario reads and validates a scenario spec from a YAML file.
func LoadScenario(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var spec ScenarioSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &spec, nil
}

// ParseTriggerEvent maps a spec event name to a TriggerEvent. The empty
// string defaults to Entry.
func ParseTriggerEvent(name string) (TriggerEvent, error) {
	switch name {
	case "", "ENTRY":
		return Entry, nil
	case "EXIT":
		return Exit, nil
	default:
		return NoChange, fmt.Errorf("unknown trigger event %q (want ENTRY or EXIT)", name)
	}
}

// Validate checks the spec for internal consistency.
func (s *ScenarioSpec) Validate() error {
	if s.Sumo.Addr == "" {
		return fmt.Errorf("sumo.addr is required")
	}
	flowNames := make(map[string]bool, len(s.Flows))
	for i, f := range s.Flows {
		if f.Origin == "" || f.Destination == "" {
			return fmt.Errorf("flow %d: origin and destination are required", i)
		}
		if f.Probability < 0 || f.Probability > 1 {
			return fmt.Errorf("flow %d: probability %v outside [0, 1]", i, f.Probability)
		}
		name := f.Name
		if name == "" {
			name = f.Origin + "-" + f.Destination
		}
		if flowNames[name] {
			return fmt.Errorf("duplicate flow name %q", name)
		}
		flowNames[name] = true
	}
	for i, tf := range s.TriggeredFlows {
		if !flowNames[tf.Flow] {
			return fmt.Errorf("triggered flow %d references unknown flow %q", i, tf.Flow)
		}
		if tf.EnableTrigger == "" || tf.DisableTrigger == "" {
			return fmt.Errorf("triggered flow %d: enable and disable triggers are required", i)
		}
		if _, err := ParseTriggerEvent(tf.EnableEvent); err != nil {
			return fmt.Errorf("triggered flow %d: %w", i, err)
		}
		if _, err := ParseTriggerEvent(tf.DisableEvent); err != nil {
			return fmt.Errorf("triggered flow %d: %w", i, err)
		}
		if s.AdditionalsFile == "" {
			return fmt.Errorf("triggered flows need an additionals_file with trigger polygons")
		}
	}
	conflictNames := make(map[string]bool, len(s.Conflicts))
	for i, c := range s.Conflicts {
		if c.Name == "" || c.Route == "" {
			return fmt.Errorf("conflict %d: name and route are required", i)
		}
		if conflictNames[c.Name] {
			return fmt.Errorf("duplicate conflict name %q", c.Name)
		}
		conflictNames[c.Name] = true
		hasPOI := c.TargetPOI != ""
		hasXY := len(c.Target) == 2
		if hasPOI == hasXY {
			return fmt.Errorf("conflict %q: exactly one of target_poi or target [x, y] is required", c.Name)
		}
		if hasPOI && s.AdditionalsFile == "" {
			return fmt.Errorf("conflict %q: target_poi needs an additionals_file", c.Name)
		}
	}
	if s.DataSync != nil {
		if s.DataSync.ListenAddr == "" {
			return fmt.Errorf("datasync.listen_addr is required when datasync is configured")
		}
		if len(s.DataSync.SendPorts) > 0 && s.DataSync.SendIP == "" {
			return fmt.Errorf("datasync.send_ip is required when send_ports are configured")
		}
	}
	return nil
}

// EgoFormat returns the configured ego update format, defaulting to "!ddd"
// (x, y, speed as network-order doubles).
func (d *DataSyncSpec) EgoFormat() string {
	if d.Format == "" {
		return "!ddd"
	}
	return d.Format
}

// ClockFormat returns the configured clock echo format, defaulting to "!d".
func (d *DataSyncSpec) ClockFormat() string {
	if d.SendFormat == "" {
		return "!d"
	}
	return d.SendFormat
}

// Scenario is a fully-instantiated scenario bound to a live SUMO
// connection. Step drives every component once per simulation step.
type Scenario struct {
	Metrics *Metrics

	triggeredFlows *TriggeredFlows
	flows          []*DynamicFlow
	conflicts      []*ConflictVehicle
}

// BuildScenario instantiates the spec against a SUMO connection: loads
// triggers and target points from the additionals file, registers flows,
// and arms conflict vehicles.
func BuildScenario(api ScenarioAPI, spec *ScenarioSpec, rng *PartitionedRNG) (*Scenario, error) {
	var triggers []*Trigger
	targets := map[string]orb.Point{}
	if spec.AdditionalsFile != "" {
		var err error
		triggers, err = ReadTriggersFromFile(spec.AdditionalsFile, spec.TriggerType)
		if err != nil {
			return nil, err
		}
		targets, err = ReadTargetPointsFromFile(spec.AdditionalsFile, spec.TargetType)
		if err != nil {
			return nil, err
		}
	}

	flowRNG := rng.ForSubsystem(SubsystemFlows)
	flowsByName := make(map[string]*DynamicFlow, len(spec.Flows))
	flows := make([]*DynamicFlow, 0, len(spec.Flows))
	for _, fs := range spec.Flows {
		flow, err := NewDynamicFlow(api, FlowConfig{
			Origin:       fs.Origin,
			Destination:  fs.Destination,
			Probability:  fs.Probability,
			VehicleMix:   fs.VehicleMix,
			DepartSpeed:  fs.DepartSpeed,
			ArrivalSpeed: fs.ArrivalSpeed,
			Via:          fs.Via,
			Name:         fs.Name,
			Disabled:     fs.Disabled,
		}, flowRNG)
		if err != nil {
			return nil, err
		}
		flowsByName[flow.Name] = flow
		flows = append(flows, flow)
	}

	triggeredFlows := NewTriggeredFlows(triggers)
	bound := make(map[string]bool)
	for _, tfs := range spec.TriggeredFlows {
		flow, ok := flowsByName[tfs.Flow]
		if !ok {
			return nil, fmt.Errorf("triggered flow references unknown flow %q", tfs.Flow)
		}
		enableEvent, err := ParseTriggerEvent(tfs.EnableEvent)
		if err != nil {
			return nil, err
		}
		disableEvent, err := ParseTriggerEvent(tfs.DisableEvent)
		if err != nil {
			return nil, err
		}
		triggeredFlows.Add(flow, tfs.EnableTrigger, tfs.DisableTrigger, enableEvent, disableEvent)
		bound[tfs.Flow] = true
	}
	// unbound flows still run every step with their configured state
	for _, flow := range flows {
		if !bound[flow.Name] {
			triggeredFlows.Add(flow, "", "", Entry, Entry)
		}
	}

	conflicts := make([]*ConflictVehicle, 0, len(spec.Conflicts))
	for _, cs := range spec.Conflicts {
		target := orb.Point{}
		if cs.TargetPOI != "" {
			point, ok := targets[cs.TargetPOI]
			if !ok {
				return nil, fmt.Errorf("conflict %q: target poi %q not found in %s", cs.Name, cs.TargetPOI, spec.AdditionalsFile)
			}
			target = point
		} else {
			target = orb.Point{cs.Target[0], cs.Target[1]}
		}
		cv, err := NewConflictVehicle(api, ConflictConfig{
			Name:         cs.Name,
			TypeID:       cs.Type,
			RouteID:      cs.Route,
			EgoTarget:    target,
			TargetOffset: cs.TargetOffset,
			ReleasePoint: cs.ReleasePoint,
		})
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, cv)
	}

	return &Scenario{
		Metrics:        NewMetrics(),
		triggeredFlows: triggeredFlows,
		flows:          flows,
		conflicts:      conflicts,
	}, nil
}

// Step drives every scenario component once. egoPos is nil when no ego
// update arrived since the last step; trigger checks and conflict control
// are skipped in that case, but flows still run.
func (s *Scenario) Step(egoPos *orb.Point, egoSpeed float64) error {
	s.Metrics.Steps++
	deployedBefore := s.deployedCount()

	if err := s.triggeredFlows.Run(egoPos); err != nil {
		return err
	}
	if egoPos != nil {
		s.Metrics.EgoUpdates++
		s.Metrics.CountEvents(s.triggeredFlows.LastEvents)
		for _, cv := range s.conflicts {
			if cv.Done() {
				continue
			}
			if err := cv.Check(*egoPos, egoSpeed); err != nil {
				return err
			}
		}
	}

	for _, flow := range s.flows {
		s.Metrics.FlowVehicles[flow.Name] = flow.Count()
	}
	s.Metrics.ConflictsDeployed += s.deployedCount() - deployedBefore
	return nil
}

func (s *Scenario) deployedCount() int {
	n := 0
	for _, cv := range s.conflicts {
		if cv.Deployed() {
			n++
		}
	}
	return n
}
