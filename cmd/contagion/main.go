// Command contagion simulates an epidemic spreading through a small town.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/contagion/internal/config"
)

// overrides are the scenario flags shared by run and serve.
type overrides struct {
	configPath       string
	seed             int64
	population       int
	hospitalCapacity int
	infected         int
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:          "contagion",
		Short:        "Agent-based epidemic simulation of a generated town",
		SilenceUsage: true,
	}

	var o overrides
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML config file (defaults when empty)")
	pf.Int64Var(&o.seed, "seed", 0, "random seed; 0 draws from crypto/rand")
	pf.IntVar(&o.population, "population", 0, "number of people")
	pf.IntVar(&o.hospitalCapacity, "hospital-capacity", 0, "total hospital beds")
	pf.IntVar(&o.infected, "infected", 0, "people infected at the start")

	load := func(cmd *cobra.Command) (config.Config, error) {
		return o.apply(cmd)
	}

	rootCmd.AddCommand(runCmd(load))
	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(defaultsCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// apply loads the config file (or defaults) and layers any flags the user
// set on top, then validates the result.
func (o overrides) apply(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("population") {
		cfg.Population = o.population
	}
	if flags.Changed("hospital-capacity") {
		cfg.HospitalCapacity = o.hospitalCapacity
	}
	if flags.Changed("infected") {
		cfg.Settings.InitialInfected = o.infected
	}
	return cfg, cfg.Validate()
}

func runCmd(load func(*cobra.Command) (config.Config, error)) *cobra.Command {
	var (
		days   int
		ticks  int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a headless simulation and print the census",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return runHeadless(cfg, days, ticks, dbPath)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "simulated days to run")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "ticks to run; overrides --days when set")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record samples and events")
	return cmd
}

func serveCmd(load func(*cobra.Command) (config.Config, error)) *cobra.Command {
	var (
		port   int
		speed  float64
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation in real time behind the observer API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return runServe(cfg, port, speed, dbPath)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port")
	cmd.Flags().Float64Var(&speed, "speed", 1, "tick-rate multiplier")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record samples and events")
	return cmd
}

func defaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := config.Marshal(config.Default())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}

func runsCmd() *cobra.Command {
	var (
		dbPath string
		show   string
		events int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, or show one run's config and events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show != "" {
				return showRun(cmd.OutOrStdout(), dbPath, show, events)
			}
			return listRuns(cmd.OutOrStdout(), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "contagion.db", "SQLite file written by run --db or serve --db")
	cmd.Flags().StringVar(&show, "show", "", "run ID to print the config and recent events of")
	cmd.Flags().IntVar(&events, "events", 10, "recent events to print with --show")
	return cmd
}
