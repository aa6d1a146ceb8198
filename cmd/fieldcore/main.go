// Package main contains the cli implementation of fieldcore, built on
// cobra's per-subcommand command tree.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fieldcore/internal/classify"
	"fieldcore/internal/config"
	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/indexclient"
	"fieldcore/internal/logging"
	"fieldcore/internal/parsers/sip"
	"fieldcore/internal/rulehook"
	"fieldcore/internal/session"
)

type bootstrapFlags struct {
	configPath string
	mysqlDSN   string
	verbose    bool
}

type defineFlags struct {
	configPath string
}

type replayFlags struct {
	configPath string
	traceFile  string
}

func main() {
	defer func() {
		// Top-level recover: a fatal startup/logic error raised via
		// fieldreg's fatalf (a go-errors-wrapped panic) is caught here,
		// once, and logged with its stack trace before the process exits.
		if r := recover(); r != nil {
			logging.Fatalf("fieldcore: fatal error: %s", errors.Wrap(r, 0).ErrorStack())
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "fieldcore",
		Short: "Network-capture field registry and session store",
	}

	rootCmd.AddCommand(bootstrapCmd())
	rootCmd.AddCommand(defineCmd())
	rootCmd.AddCommand(replayCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrapCmd() *cobra.Command {
	flags := &bootstrapFlags{}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Load a config, build the field registry, and print the resulting field table",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBootstrap(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the TOML config file (required)")
	cmd.Flags().StringVar(&flags.mysqlDSN, "mysql", "", "MySQL DSN for the external index; omitted means in-memory only")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func runBootstrap(flags *bootstrapFlags) error {
	if flags.verbose {
		logging.Configure(logrus.DebugLevel)
	}
	if flags.configPath == "" {
		return fmt.Errorf("--config is required")
	}

	registry, index, err := buildRegistry(flags.configPath, flags.mysqlDSN)
	if err != nil {
		return err
	}
	defer closeIndex(index)

	printFieldTable(registry)
	return nil
}

func defineCmd() *cobra.Command {
	flags := &defineFlags{}
	cmd := &cobra.Command{
		Use:   "define <spec>",
		Short: "Register one DefineText-grammar field spec and print its assigned position",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDefine(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Optional TOML config to seed the registry before defining")
	return cmd
}

func runDefine(spec string, flags *defineFlags) error {
	var registry *fieldreg.Registry
	if flags.configPath != "" {
		var err error
		registry, _, err = buildRegistry(flags.configPath, "")
		if err != nil {
			return err
		}
	} else {
		registry = fieldreg.New(fieldcore.FieldsMax)
		fieldreg.Bootstrap(registry)
		session.RegisterInternalFields(registry)
	}

	pos := registry.DefineText(spec)
	fmt.Printf("%s -> position %d\n", spec, pos)
	return nil
}

func replayCmd() *cobra.Command {
	flags := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay <trace-file>",
		Short: "Replay a synthetic capture trace through the classifier/parser chain",
		Long: `Replay reads a line-oriented trace file, one packet per line:

  <udp|tcp> <src|dst> <hex-encoded-payload>

and feeds each line through the classifier/parser dispatch, printing the
protocols the session was classified as once the trace is exhausted
(the field values themselves are not printed). This stands in for
the packet engine, which this core does not implement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			flags.traceFile = args[0]
			return runReplay(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the TOML config file (required)")
	return cmd
}

func runReplay(flags *replayFlags) error {
	if flags.configPath == "" {
		return fmt.Errorf("--config is required")
	}

	registry, index, err := buildRegistry(flags.configPath, "")
	if err != nil {
		return err
	}
	defer closeIndex(index)

	dispatcher := &classify.Dispatcher{}
	sip.Register(registry, dispatcher)

	rules := &rulehook.Bus{}
	sess := session.New(registry, rules)
	sess.Key = uuid.NewString()
	state := classify.NewSessionState(sess)

	if err := replayTrace(flags.traceFile, dispatcher, state); err != nil {
		return err
	}

	dispatcher.SessionFree(state)
	sess.Free()

	fmt.Printf("session %s classified as: %s\n", sess.Key, strings.Join(state.Protocols(), ", "))
	return nil
}

func replayTrace(path string, dispatcher *classify.Dispatcher, state *classify.SessionState) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("replay: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := replayLine(line, dispatcher, state); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func replayLine(line string, dispatcher *classify.Dispatcher, state *classify.SessionState) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return fmt.Errorf("replay: malformed trace line %q", line)
	}

	proto, side, hexPayload := parts[0], parts[1], parts[2]
	direction, err := directionFor(side)
	if err != nil {
		return err
	}

	data, err := decodeHex(hexPayload)
	if err != nil {
		return fmt.Errorf("replay: bad payload in %q: %w", line, err)
	}

	switch proto {
	case "udp":
		dispatcher.ClassifyUDP(state, data, direction)
	case "tcp":
		dispatcher.ClassifyTCP(state, data, direction)
	default:
		return fmt.Errorf("replay: unknown protocol %q", proto)
	}
	dispatcher.Dispatch(state, data, direction)
	return nil
}

func directionFor(side string) (int, error) {
	switch side {
	case "src":
		return int(classify.DirSrc), nil
	case "dst":
		return int(classify.DirDst), nil
	default:
		return 0, fmt.Errorf("replay: unknown direction %q", side)
	}
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}

// buildRegistry wires together config loading, registry construction,
// bootstrap/internal-field registration, the custom field specs and remap
// rules a config supplies, and (optionally) a MySQL-backed external index,
// per the field registry's startup and config-loading contract.
func buildRegistry(configPath, mysqlDSN string) (*fieldreg.Registry, indexclient.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	fieldsMax := fieldcore.FieldsMax
	if cfg.FieldsMax > 0 {
		fieldsMax = int32(cfg.FieldsMax)
	}

	registry := fieldreg.New(fieldsMax)
	fieldreg.Bootstrap(registry)
	session.RegisterInternalFields(registry)

	var index indexclient.Client
	if mysqlDSN != "" {
		mysqlClient, err := indexclient.Connect(context.Background(), mysqlDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("fieldcore: connecting external index: %w", err)
		}
		index = mysqlClient
	} else {
		index = indexclient.NewMemory()
	}
	registry.Index = index

	for _, spec := range cfg.Fields {
		pos := registry.DefineText(spec)
		announceField(registry, index, pos)
	}
	registry.LoadRemap(cfg.CustomFieldsRemap)

	return registry, index, nil
}

// announceField mirrors a freshly defined field out to the external index,
// per the schema-channel contract. pos == -1 means the
// registration was FAKE and never got a durable position; nothing to
// announce.
func announceField(registry *fieldreg.Registry, index indexclient.Client, pos int32) {
	if pos < 0 {
		return
	}
	fi := registry.FieldAt(pos)
	if fi == nil {
		return
	}
	index.AddField(fi.Group, fi.Kind.String(), fi.Expression, fi.Expression, fi.DBField, fi.Expression, false,
		indexclient.FieldOptions{Category: fi.Category, Transform: fi.Transform, Aliases: fi.Aliases})
}

func closeIndex(index indexclient.Client) {
	if closer, ok := index.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.WithError(err).Warnf("fieldcore: closing external index")
		}
	}
}

func printFieldTable(registry *fieldreg.Registry) {
	fmt.Printf("%-6s %-28s %-28s %-10s\n", "POS", "EXPRESSION", "DB FIELD", "KIND")
	for pos := int32(0); pos < registry.MaxDbField(); pos++ {
		fi := registry.FieldAt(pos)
		if fi == nil {
			continue
		}
		fmt.Printf("%-6d %-28s %-28s %-10s\n", pos, fi.Expression, fi.DBField, fi.Kind)
	}
}
