package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/adapters"
	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	"github.com/ZanzyTHEbar/campus-mcp/internal/knowledge"
	"github.com/ZanzyTHEbar/campus-mcp/internal/tools"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var (
	toolNameFlag = &cli.StringFlag{
		Name:     "tool",
		Aliases:  []string{"t"},
		Usage:    "Tool name (see 'toolctl list')",
		Required: true,
	}

	paramsFlag = &cli.StringFlag{
		Name:    "params",
		Aliases: []string{"p"},
		Usage:   "Tool parameters as a JSON object",
	}

	paramsFileFlag = &cli.StringFlag{
		Name:  "params-file",
		Usage: "Path to a JSON or YAML file holding the tool parameters",
	}

	queryFlag = &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "Search keywords",
		Required: true,
	}

	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of documents returned",
		Value: knowledge.DefaultMaxResults,
	}

	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Classifier [pneumonia, fruits]",
		Value: "fruits",
	}

	tfServingFlag = &cli.StringFlag{
		Name:     "tf-serving-url",
		Usage:    "TensorFlow Serving REST endpoint",
		EnvVars:  []string{"TF_SERVING_URL"},
		Required: true,
	}

	servingNameFlag = &cli.StringFlag{
		Name:  "serving-name",
		Usage: "Model name known to TF Serving (defaults to --model)",
	}

	labelsFlag = &cli.StringFlag{
		Name:    "labels",
		Usage:   "Pneumonia labels file (optional)",
		EnvVars: []string{"PNEUMONIA_LABELS_PATH"},
	}

	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Classification timeout",
		Value: 30 * time.Second,
	}

	listCmd = &cli.Command{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "List available tools",
		Action:  cmdListTools,
	}

	runCmd = &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a tool",
		Action:  cmdRunTool,
		Flags: []cli.Flag{
			toolNameFlag,
			paramsFlag,
			paramsFileFlag,
		},
	}

	searchCmd = &cli.Command{
		Name:    "search",
		Aliases: []string{"s"},
		Usage:   "Search the knowledge base",
		Action:  cmdSearch,
		Flags: []cli.Flag{
			queryFlag,
			limitFlag,
		},
	}

	classifyCmd = &cli.Command{
		Name:      "classify",
		Aliases:   []string{"c"},
		Usage:     "Classify an image file against TF Serving",
		ArgsUsage: "<image>",
		Action:    cmdClassify,
		Flags: []cli.Flag{
			modelFlag,
			tfServingFlag,
			servingNameFlag,
			labelsFlag,
			timeoutFlag,
		},
	}
)

func cmdListTools(c *cli.Context) error {
	return encode(c, tools.NewDispatcher().Tools())
}

func cmdRunTool(c *cli.Context) error {
	params, err := readParams(c.String(paramsFlag.Name), c.String(paramsFileFlag.Name))
	if err != nil {
		return err
	}

	res, err := tools.NewDispatcher().Execute(c.String(toolNameFlag.Name), params)
	if err != nil {
		return err
	}
	return encode(c, res)
}

// readParams accepts inline JSON or a file. YAML files are converted to JSON.
func readParams(inline, path string) (json.RawMessage, error) {
	if inline != "" && path != "" {
		return nil, errors.New("--params and --params-file are mutually exclusive")
	}
	if path == "" {
		if inline == "" {
			inline = "{}"
		}
		return json.RawMessage(inline), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		return data, nil
	}

	var v map[string]any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing params file: %w", err)
	}
	return json.Marshal(v)
}

func cmdSearch(c *cli.Context) error {
	base, err := knowledge.Load()
	if err != nil {
		return err
	}
	return encode(c, base.Search(c.String(queryFlag.Name), c.Int(limitFlag.Name)))
}

func cmdClassify(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one image path is required")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	img, _, err := classifier.Decode(data)
	if err != nil {
		return err
	}

	model := c.String(modelFlag.Name)
	servingName := c.String(servingNameFlag.Name)
	if servingName == "" {
		servingName = model
	}

	var cfg classifier.ModelConfig
	switch model {
	case "pneumonia":
		labels, err := classifier.PneumoniaLabels(c.String(labelsFlag.Name))
		if err != nil {
			return err
		}
		cfg = classifier.PneumoniaConfig(servingName, labels)
	case "fruits":
		cfg = classifier.FruitsConfig(servingName)
	default:
		return fmt.Errorf("unknown model %q", model)
	}

	backend, err := adapters.NewTFServingAdapter(c.String(tfServingFlag.Name), nil, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration(timeoutFlag.Name))
	defer cancel()

	registry := classifier.NewRegistry(nil, nil)
	m := classifier.NewModel(cfg, backend)
	registry.Register(m)
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("loading %s model: %w", model, err)
	}

	pred, err := tools.NewDispatcher(tools.WithClassifier(registry)).Classify(ctx, model, img)
	if err != nil {
		return err
	}
	return encode(c, pred)
}
