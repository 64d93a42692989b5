// Command stemmount builds the printable bike stem mount: a headset collar,
// a bent stem and a split handlebar clamp, composed and exported as STL.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chazu/stemmount/pkg/engine"
	"github.com/chazu/stemmount/pkg/params"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// options holds the global flags.
type options struct {
	config   string
	script   string
	logLevel string
	cell     float64

	log *zap.Logger
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "stemmount",
		Short: "Parametric bike stem mount generator",
		Long: `stemmount builds a headset collar, a bent stem and a handlebar clamp from
one parameter set, checks that the composed assembly splits into the
expected number of printable solids and writes it out as binary STL.

Parameters start from the built-in defaults, are overlaid with --config
(yaml) and finally with --script, a Lisp file such as

  (stem :angle -12 :fillet 4)
  (assembly :variant :sweep)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.log.Sync()
		},
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.config, "config", "", "yaml parameter file laid over the defaults")
	flags.StringVar(&opts.script, "script", "", "Lisp parameter script applied after --config")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.Float64Var(&opts.cell, "cell", 0, "voxel size in mm for solid counting (default from parameters)")

	root.AddCommand(newBuildCmd(opts), newCheckCmd(opts), newParamsCmd(opts))
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// loadParams resolves the parameter set from the defaults, --config,
// --script and --cell, in that order.
func (o *options) loadParams() (params.Set, error) {
	p := params.Default()
	if o.config != "" {
		var err error
		if p, err = params.Load(o.config); err != nil {
			return params.Set{}, err
		}
		o.log.Info("parameters loaded", zap.String("config", o.config))
	}
	if o.script != "" {
		src, err := os.ReadFile(o.script)
		if err != nil {
			return params.Set{}, fmt.Errorf("read script: %w", err)
		}
		res, evalErrs, err := engine.NewEngine().Evaluate(string(src), p)
		if err != nil {
			return params.Set{}, fmt.Errorf("script %s: %w", o.script, err)
		}
		if len(evalErrs) > 0 {
			msgs := make([]string, len(evalErrs))
			for i, e := range evalErrs {
				msgs[i] = e.Error()
			}
			return params.Set{}, fmt.Errorf("script %s: %s", o.script, strings.Join(msgs, "; "))
		}
		for _, ov := range res.Overrides {
			o.log.Debug("override", zap.String("param", ov.Section+"."+ov.Key), zap.Any("value", ov.Value))
		}
		o.log.Info("script applied", zap.String("script", o.script), zap.Int("overrides", len(res.Overrides)))
		p = res.Params
	}
	if o.cell > 0 {
		p.Validation.Cell = o.cell
	}
	if err := p.Validate(); err != nil {
		return params.Set{}, err
	}
	return p, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
		}
		os.Exit(1)
	}
}
