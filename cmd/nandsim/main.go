// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command nandsim loads, runs and inspects NAND circuits.
//
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ns "github.com/db47h/nandsim"
	"github.com/db47h/nandsim/internal/config"
	"github.com/db47h/nandsim/internal/logging"
)

// app holds the state shared by all commands.
type app struct {
	cfgPath  string
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
}

// circuitArg annotates commands whose first argument is a circuit file.
const circuitArg = "circuitArg"

// setup loads the configuration and builds the logger. A circuit path in args
// overrides the configured one.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if len(args) > 0 && cmd.Annotations[circuitArg] != "" {
		cfg.Circuit = args[0]
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	l, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = l.With(zap.String("session", uuid.New().String()))
	return nil
}

// simulator returns a simulator loaded from the configured circuit file.
func (a *app) simulator() (*ns.Simulator, error) {
	s := ns.New(ns.WithLogger(a.log), ns.WithOpsLimit(a.cfg.OpsLimit))
	if _, err := s.LoadFile(a.cfg.Circuit); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) sync() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func parseNodeID(s string) (ns.NodeID, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "node#"), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid node id %q", s)
	}
	return ns.NodeID(v), nil
}

// parseAssign parses id=0|1.
func parseAssign(s string) (ns.NodeID, bool, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return 0, false, errors.Errorf("invalid assignment %q, want id=0|1", s)
	}
	id, err := parseNodeID(strings.TrimSpace(k))
	if err != nil {
		return 0, false, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return 0, false, errors.Errorf("invalid value in %q", s)
	}
	return id, b, nil
}

func sortedKeys(m map[string]ns.NodeID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newRootCmd() *cobra.Command {
	a := new(app)
	root := &cobra.Command{
		Use:           "nandsim",
		Short:         "event driven NAND logic simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "nandsim.yaml", "config file path (yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.runCmd(),
		a.stepCmd(),
		a.infoCmd(),
		a.traceCmd(),
		a.buildCmd(),
		a.demoCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nandsim:", err)
		os.Exit(1)
	}
}
