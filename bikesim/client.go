package bikesim

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// SimStepper is the minimal connection surface the step-loop client needs.
// *traci.Client satisfies it.
type SimStepper interface {
	SimulationStep() error
	Time() (float64, error)
	Close() error
}

// VehicleAdder inserts vehicles; used for the scheduled ego insertion.
type VehicleAdder interface {
	AddVehicle(vehID, routeID string, params traci.VehicleParams) error
}

// UpdateAction is a callback invoked after every simulation step with the
// current simulation time.
type UpdateAction func(now float64) error

// Client drives a TraCI connection step by step, running registered update
// actions after each step.
type Client struct {
	api     SimStepper
	time    float64
	actions []UpdateAction
}

// NewClient wraps an established connection.
func NewClient(api SimStepper) *Client {
	return &Client{api: api}
}

// DialSlave connects to a running SUMO as an additional TraCI client and
// declares its execution order.
func DialSlave(addr string, order int) (*traci.Client, error) {
	conn, err := traci.Dial(addr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetOrder(order); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set connection order: %w", err)
	}
	return conn, nil
}

// StartMaster launches a SUMO process with the given configuration file and
// connects to it as the primary TraCI client. The returned Cmd is the
// running SUMO process; the caller owns both.
func StartMaster(ctx context.Context, sumoBin, sumoCfg string, port int) (*traci.Client, *exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, sumoBin, "-c", sumoCfg, "--remote-port", strconv.Itoa(port))
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", sumoBin, err)
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	conn, err := dialRetry(ctx, addr, 10*time.Second)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, nil, err
	}
	return conn, cmd, nil
}

// dialRetry dials the TraCI server until it accepts, the timeout passes, or
// the context is cancelled. SUMO needs a moment to open its port after
// launch.
func dialRetry(ctx context.Context, addr string, timeout time.Duration) (*traci.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := traci.Dial(addr)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("traci server at %s did not come up: %w", addr, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Time returns the simulation time observed after the most recent step.
func (c *Client) Time() float64 {
	return c.time
}

// AddUpdateAction registers a callback to run after every simulation step.
func (c *Client) AddUpdateAction(action UpdateAction) {
	c.actions = append(c.actions, action)
}

// ScheduleEgoInsertion registers an update action that inserts the ego
// vehicle once the simulation clock reaches startTime.
func (c *Client) ScheduleEgoInsertion(adder VehicleAdder, routeID string, startTime float64, vehID, typeID string) {
	if vehID == "" {
		vehID = "ego"
	}
	inserted := false
	c.AddUpdateAction(func(now float64) error {
		if inserted || now < startTime {
			return nil
		}
		if err := adder.AddVehicle(vehID, routeID, traci.VehicleParams{TypeID: typeID}); err != nil {
			return fmt.Errorf("insert ego vehicle %s: %w", vehID, err)
		}
		logrus.Infof("ego vehicle %s inserted at t=%.2fs", vehID, now)
		inserted = true
		return nil
	})
}

// Update advances the simulation one step, refreshes the clock, and runs
// every registered update action.
func (c *Client) Update() error {
	if err := c.api.SimulationStep(); err != nil {
		return fmt.Errorf("simulation step: %w", err)
	}
	t, err := c.api.Time()
	if err != nil {
		return fmt.Errorf("read simulation time: %w", err)
	}
	c.time = t
	for _, action := range c.actions {
		if err := action(c.time); err != nil {
			return err
		}
	}
	return nil
}

// Run steps the simulation until the context is cancelled or the clock
// reaches horizon (seconds). A non-positive horizon runs until cancelled.
func (c *Client) Run(ctx context.Context, horizon float64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Update(); err != nil {
			return err
		}
		if horizon > 0 && c.time >= horizon {
			logrus.Infof("horizon %.2fs reached at t=%.2fs", horizon, c.time)
			return nil
		}
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.api.Close()
}
