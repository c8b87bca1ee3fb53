// FILE: lixenwraith/treeconf/cmd/treeconf/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lixenwraith/treeconf"
	"github.com/urfave/cli/v2"
)

var valueTypes = map[string]*treeconf.Type{
	"string":   treeconf.StringType(),
	"int":      treeconf.Int64Type(),
	"uint":     treeconf.Uint64Type(),
	"float":    treeconf.Float64Type(),
	"bool":     treeconf.BoolType(),
	"duration": treeconf.DurationType(),
	"time":     treeconf.TimeType(),
	"url":      treeconf.URLType(),
	"ip":       treeconf.IPType(),
	"cidr":     treeconf.IPNetType(),
	"list":     treeconf.ListOf(treeconf.StringType()),
	"map":      treeconf.MapOf(treeconf.StringType(), treeconf.StringType()),
	"any":      treeconf.AnyType(),
}

func main() {
	app := &cli.App{
		Name:  "treeconf",
		Usage: "inspect layered configuration",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "configuration file, later files override earlier ones",
			},
			&cli.StringFlag{
				Name:  "env-prefix",
				Usage: "read environment variables starting with this prefix",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat warnings as errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "decode the value at a path",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Value: "string",
						Usage: "value type: " + strings.Join(typeNames(), ", "),
					},
				},
				Action: getAction,
			},
			{
				Name:   "dump",
				Usage:  "print the merged configuration as TOML",
				Action: dumpAction,
			},
			{
				Name:      "validate",
				Usage:     "check the configuration loads without errors",
				ArgsUsage: "[required paths...]",
				Action:    validateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load builds a Config from the global flags
func load(cCtx *cli.Context) (*treeconf.Config, error) {
	opts := treeconf.DefaultOptions()
	opts.TreatWarningsAsErrors = cCtx.Bool("strict")

	b := treeconf.NewBuilder().
		WithOptions(opts).
		WithLogger(treeconf.NewLogger(treeconf.LoggerConfig{Level: cCtx.String("log-level")}, os.Stderr)).
		WithArgs(nil)

	files := cCtx.StringSlice("file")
	for _, file := range files {
		b.AddSource(treeconf.NewFileSource(file))
	}
	if prefix := cCtx.String("env-prefix"); prefix != "" {
		b.WithEnvPrefix(prefix)
	}

	cfg, err := b.Build()
	if err != nil && !errors.Is(err, treeconf.ErrConfigNotFound) {
		return nil, err
	}
	if err != nil && len(files) > 0 {
		return nil, err
	}
	return cfg, nil
}

func getAction(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return cli.Exit("get requires exactly one path", 2)
	}
	t, ok := valueTypes[cCtx.String("type")]
	if !ok {
		return cli.Exit(fmt.Sprintf("unknown type %q", cCtx.String("type")), 2)
	}

	cfg, err := load(cCtx)
	if err != nil {
		return err
	}

	result := cfg.Lookup(cCtx.Args().First(), t)
	for _, d := range result.Errors() {
		fmt.Fprintf(cCtx.App.ErrWriter, "%s: %s\n", d.Level(), d.Error())
	}
	value, err := cfg.Get(cCtx.Args().First(), t)
	if err != nil {
		return cli.Exit("", 1)
	}
	fmt.Fprintln(cCtx.App.Writer, formatValue(value))
	return nil
}

func dumpAction(cCtx *cli.Context) error {
	cfg, err := load(cCtx)
	if err != nil {
		return err
	}
	return cfg.Dump(cCtx.App.Writer)
}

func validateAction(cCtx *cli.Context) error {
	cfg, err := load(cCtx)
	if err != nil {
		return err
	}

	for _, d := range cfg.Diagnostics() {
		fmt.Fprintf(cCtx.App.ErrWriter, "%s: %s\n", d.Level(), d.Error())
	}
	if err := cfg.Validate(cCtx.Args().Slice()...); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(cCtx.App.Writer, "ok")
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+val[k])
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func typeNames() []string {
	names := make([]string, 0, len(valueTypes))
	for name := range valueTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
