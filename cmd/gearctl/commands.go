package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/durationjson"
	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	"github.com/clusterhq/gear/config"
	"github.com/clusterhq/gear/http/client"
	"github.com/clusterhq/gear/poller"
	"github.com/clusterhq/gear/reaper"
	"github.com/spf13/cobra"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/sigmon"
)

type options struct {
	configPath string
	host       string
	port       int
	timeout    time.Duration
	logLevel   string
}

type session struct {
	logger lager.Logger
	client gear.Client
	poller *poller.Poller
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gearctl",
		Short:         "Manage units on a gear supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a JSON or YAML client config file")
	flags.StringVar(&opts.host, "host", config.DefaultHost, "supervisor host")
	flags.IntVar(&opts.port, "port", gear.DefaultPort, "supervisor port")
	flags.DurationVar(&opts.timeout, "timeout", poller.DefaultTimeout, "how long to wait for a unit to start")
	flags.StringVar(&opts.logLevel, "log-level", "error", "minimum log level: debug, info, error or fatal")

	root.AddCommand(
		newAddCommand(opts),
		newExistsCommand(opts),
		newRemoveCommand(opts),
		newListCommand(opts),
		newWaitCommand(opts),
		newReapCommand(opts),
	)

	return root
}

func (o *options) session(cmd *cobra.Command) (*session, error) {
	cfg := config.DefaultClientConfig()
	cfg.LogLevel = "error"

	if o.configPath != "" {
		err := config.Load(o.configPath, &cfg)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("timeout") {
		cfg.PollTimeout = durationjson.Duration(o.timeout)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger("gearctl", cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &session{
		logger: logger,
		client: client.New(logger, cfg.Host, cfg.Port),
		poller: poller.New(clock.NewClock(), time.Duration(cfg.PollInterval), time.Duration(cfg.PollTimeout)),
	}, nil
}

func newAddCommand(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "add NAME IMAGE",
		Short: "Create a unit from an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			name, image := args[0], args[1]
			err = s.client.Add(cmd.Context(), name, image)
			if err != nil {
				return err
			}

			if wait {
				err = s.waitFor(cmd.Context(), "wait-for-running", name, poller.UnitRunning(s.client, name))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s running\n", name)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s added\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the unit is running")
	return cmd
}

func newExistsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exists NAME",
		Short: "Report whether a unit exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			exists, err := s.client.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}
}

func newRemoveCommand(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			name := args[0]
			err = s.client.Remove(cmd.Context(), name)
			if err != nil {
				return err
			}

			if wait {
				err = s.waitFor(cmd.Context(), "wait-for-removal", name, poller.UnitGone(s.client, name))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s gone\n", name)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the supervisor no longer lists the unit")
	return cmd
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			units, err := s.client.List(cmd.Context())
			if err != nil {
				return err
			}

			return writeUnits(cmd.OutOrStdout(), units)
		},
	}
}

func newWaitCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "wait NAME",
		Short: "Wait until a unit is running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			err = s.waitFor(cmd.Context(), "wait-for-running", args[0], poller.UnitRunning(s.client, args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s running\n", args[0])
			return nil
		},
	}
}

func newReapCommand(opts *options) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "reap PREFIX",
		Short: "Remove every unit whose name starts with PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			return reaper.RemoveMatching(cmd.Context(), s.logger, s.client, args[0], workers)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", reaper.DefaultMaxWorkers, "concurrent removals")
	return cmd
}

// waitFor polls predicate as a process that SIGINT or SIGTERM interrupts.
// Cancelling ctx interrupts it too.
func (s *session) waitFor(ctx context.Context, action, name string, predicate poller.Predicate) error {
	logger := s.logger.Session(action, lager.Data{"name": name})
	process := ifrit.Background(sigmon.New(poller.NewRunner(logger, s.poller, predicate)))

	select {
	case err := <-process.Wait():
		return err
	case <-ctx.Done():
		process.Signal(os.Interrupt)
		<-process.Wait()
		return ctx.Err()
	}
}

func writeUnits(w io.Writer, units []gear.Unit) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tIMAGE\tSTATE\tSUB-STATE")
	for _, unit := range units {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", unit.Name, unit.Image, unit.State, unit.SubState)
	}
	return tw.Flush()
}
