package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "toolctl",
		Version:         fmt.Sprintf("%s (%s)", version, commit),
		Compiled:        time.Now(),
		HideHelpCommand: true,
		Usage:           "Run the campus analytics tools and knowledge search locally",
		Flags: []cli.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			listCmd,
			runCmd,
			searchCmd,
			classifyCmd,
		},
		Before: func(c *cli.Context) error {
			level := "warn"
			if c.Bool(debugFlag.Name) {
				level = "debug"
			}
			slog.SetDefault(monitoring.NewLoggerWithWriter(c.App.ErrWriter, level).Logger)

			switch c.String(formatFlag.Name) {
			case formatJSON, formatYAML, "yml":
				return nil
			default:
				return fmt.Errorf("unknown format %q", c.String(formatFlag.Name))
			}
		},
	}
}

func encode(c *cli.Context, v any) error {
	return write(c.App.Writer, c.String(formatFlag.Name), v)
}

func write(w io.Writer, format string, v any) error {
	if format == formatYAML || format == "yml" {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
