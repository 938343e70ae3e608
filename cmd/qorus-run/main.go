// Command qorus-run is the thin driver: it loads a model, builds the
// graph, allocates the KV cache, then loops Forward plus a trivial
// greedy sampler over caller-supplied token ids. The byte-pair
// tokenizer and any real sampling policy are external collaborators
// out of scope here; this CLI accepts pre-tokenized ids so the engine
// can be exercised end to end.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	qorus "github.com/qorus-infer/qorus"
	"github.com/qorus-infer/qorus/util/anyx"
	"github.com/qorus-infer/qorus/util/signalx"
)

var Version = "v0.0.0"

func main() {
	name := filepath.Base(os.Args[0])

	var modelPath string
	var tokensArg string
	var steps int
	var lazy bool
	var debug bool

	app := &cli.App{
		Name:                   name,
		Usage:                  "Run the Qorus CPU inference engine against a local model file.",
		UsageText:              name + " [global options]",
		Version:                Version,
		UseShortOptionHandling: true,
		HideHelp:               false,
		Reader:                 os.Stdin,
		Writer:                 os.Stdout,
		ErrWriter:              os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Destination: &modelPath,
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "Path to a qorus model file.",
				Required:    true,
			},
			&cli.StringFlag{
				Destination: &tokensArg,
				Name:        "tokens",
				Aliases:     []string{"t"},
				Usage:       "Comma-separated prompt token ids.",
				Required:    true,
			},
			&cli.IntFlag{
				Destination: &steps,
				Name:        "steps",
				Aliases:     []string{"n"},
				Usage:       "Number of additional tokens to generate greedily.",
				Value:       8,
			},
			&cli.BoolFlag{
				Destination: &lazy,
				Name:        "lazy",
				Usage:       "Use the lazy (demand-fault) mmap strategy instead of eager prefault.",
			},
			&cli.BoolFlag{
				Destination: &debug,
				Name:        "debug",
				Usage:       "Print per-layer timing after each forward call.",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c, modelPath, tokensArg, steps, lazy, debug)
		},
	}

	ctx := signalx.Handler()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context, modelPath, tokensArg string, steps int, lazy, debug bool) error {
	strategy := qorus.StrategyEager
	if lazy {
		strategy = qorus.StrategyLazy
	}

	prompt, err := parseTokens(tokensArg)
	if err != nil {
		return err
	}

	maxWindow := uint64(len(prompt))
	if maxWindow < 1 {
		maxWindow = 1
	}

	m, err := qorus.NewModel(modelPath, maxWindow, qorus.WithLoadStrategy(strategy))
	if err != nil {
		return err
	}
	defer func() { _ = m.Free() }()

	fmt.Fprintln(c.App.Writer, m.File.Header.String())
	if headerJSON, err := m.File.Header.MarshalJSON(); err == nil {
		fmt.Fprintln(c.App.Writer, string(headerJSON))
	}

	if err := m.BuildGraph(); err != nil {
		return err
	}
	if err := m.AllocKVCache(); err != nil {
		return err
	}

	var tracer *qorus.Tracer
	if debug {
		tracer = qorus.NewTracer(int(m.File.Header.NLayers) * 4)
	}

	logits := make([]float32, m.File.Header.VocabSize)
	position := 0
	window := prompt

	for step := 0; step <= steps; step++ {
		var opts []qorus.ForwardOption
		if tracer != nil {
			opts = append(opts, qorus.WithTracer(tracer))
		}
		if err := m.Forward(window, position, logits, opts...); err != nil {
			return err
		}
		if tracer != nil {
			for _, r := range tracer.Drain() {
				fmt.Fprintln(c.App.Writer, r.String())
			}
		}

		next := argmax(logits)
		fmt.Fprintln(c.App.Writer, next)

		position += len(window)
		window = []int32{int32(next)}
	}
	return nil
}

func parseTokens(s string) ([]int32, error) {
	parts := strings.Split(s, ",")
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// anyx.Number does a best-effort string-to-number conversion
		// (0 on failure), so a zero result is rejected for any input
		// other than "0" rather than trusting a silent zero for a
		// malformed id.
		v := anyx.Number[int32](p)
		if p != "0" && v == 0 {
			return nil, fmt.Errorf("invalid token id %q", p)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no token ids given")
	}
	return out, nil
}

func argmax(logits []float32) int {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return best
}
