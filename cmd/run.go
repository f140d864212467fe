package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/patmalcolm91/bikesimtools/bikesim"
	"github.com/patmalcolm91/bikesimtools/bikesim/datasync"
)

var (
	scenarioFile string  // Path to the scenario YAML file
	sumoAddr     string  // TraCI server address, overrides the scenario
	order        int     // TraCI client order, overrides the scenario
	horizon      float64 // Simulation end time in seconds, 0 runs until interrupted
	seed         int64   // Master random seed, overrides the scenario
)

// runCmd executes a scenario against a live SUMO instance
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario against a running SUMO instance",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := bikesim.LoadScenario(scenarioFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if sumoAddr != "" {
			spec.Sumo.Addr = sumoAddr
		}
		if cmd.Flags().Changed("order") {
			spec.Sumo.Order = order
		}
		if cmd.Flags().Changed("seed") {
			spec.Seed = bikesim.ScenarioSeed(seed)
		}
		if spec.Sumo.Order == 0 {
			spec.Sumo.Order = 1
		}

		logrus.Infof("Connecting to SUMO at %s (order %d, seed %d)", spec.Sumo.Addr, spec.Sumo.Order, spec.Seed)
		conn, err := bikesim.DialSlave(spec.Sumo.Addr, spec.Sumo.Order)
		if err != nil {
			logrus.Fatalf("Could not connect to SUMO: %v", err)
		}
		defer conn.Close()

		scenario, err := bikesim.BuildScenario(conn, spec, bikesim.NewPartitionedRNG(spec.Seed))
		if err != nil {
			logrus.Fatalf("Could not build scenario: %v", err)
		}

		var server *datasync.Server
		if spec.DataSync != nil {
			server, err = datasync.NewServer(spec.DataSync.ListenAddr, spec.DataSync.EgoFormat())
			if err != nil {
				logrus.Fatalf("Could not start ego update listener: %v", err)
			}
			defer server.Close()
		}

		client := bikesim.NewClient(conn)
		client.AddUpdateAction(func(now float64) error {
			var egoPos *orb.Point
			var egoSpeed float64
			if server != nil {
				pos, speed, err := latestEgoUpdate(server)
				if err != nil {
					return err
				}
				egoPos, egoSpeed = pos, speed
			}
			if err := scenario.Step(egoPos, egoSpeed); err != nil {
				return err
			}
			if server != nil && len(spec.DataSync.SendPorts) > 0 {
				return datasync.Send(spec.DataSync.SendIP, spec.DataSync.SendPorts,
					spec.DataSync.ClockFormat(), spec.DataSync.Broadcast, now)
			}
			return nil
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer cancel()
			return client.Run(gctx, horizon)
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case s := <-sigCh:
				logrus.Infof("Received %v, shutting down", s)
				cancel()
			}
			return nil
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Errorf("Scenario aborted: %v", err)
		}

		scenario.Metrics.Print()
		logrus.Info("Scenario complete.")
	},
}

// latestEgoUpdate drains the ego feed and returns the most recent position
// and speed, or a nil position if no update arrived since the last step.
func latestEgoUpdate(server *datasync.Server) (*orb.Point, float64, error) {
	msgs, err := server.Messages()
	if err != nil {
		return nil, 0, err
	}
	if len(msgs) == 0 {
		return nil, 0, nil
	}
	vals, err := datasync.Floats(msgs[len(msgs)-1])
	if err != nil {
		return nil, 0, err
	}
	if len(vals) < 2 {
		return nil, 0, errors.New("ego update format needs at least x and y fields")
	}
	pos := orb.Point{vals[0], vals[1]}
	speed := 0.0
	if len(vals) > 2 {
		speed = vals[2]
	}
	return &pos, speed, nil
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "Path to the scenario YAML file")
	runCmd.Flags().StringVar(&sumoAddr, "sumo-addr", "", "TraCI server address (host:port), overrides the scenario")
	runCmd.Flags().IntVar(&order, "order", 1, "TraCI client execution order, overrides the scenario")
	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "Simulation end time in seconds (0 runs until interrupted)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Master random seed, overrides the scenario")
	_ = runCmd.MarkFlagRequired("scenario")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
