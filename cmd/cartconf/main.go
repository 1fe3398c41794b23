package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oarkflow/cartconf"
	"github.com/oarkflow/cartconf/utils"
)

// cartconfExtraArgsEnv names the environment variable consulted when a
// run passes no trailing key=value/only/no arguments, so CI invocations
// that can't easily vary argv still get a way to inject them.
const cartconfExtraArgsEnv = "CARTCONF_EXTRA_ARGS"

func main() {
	var (
		contents  bool
		verbose   bool
		overwrite []string
		onlyExprs []string
		noExprs   []string
	)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	rootCmd := &cobra.Command{
		Use:   "cartconf <config> [key=value|only X|no X]...",
		Short: "Expand a Cartesian configuration file into its variant dicts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			extraArgs := args[1:]
			if len(extraArgs) == 0 && len(overwrite) == 0 && len(onlyExprs) == 0 && len(noExprs) == 0 {
				if fallback := utils.Getenv(cartconfExtraArgsEnv); fallback != "" {
					extraArgs = strings.Fields(fallback)
					log.WithField("args", extraArgs).Debug("using " + cartconfExtraArgsEnv)
				}
			}
			return run(log, args[0], extraArgs, overwrite, onlyExprs, noExprs, contents)
		},
	}

	rootCmd.Flags().BoolVarP(&contents, "contents", "c", false, "treat the first positional argument as source text rather than a path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each expansion step")
	rootCmd.Flags().StringArrayVarP(&overwrite, "overwrite", "o", nil, "key=value pairs applied as extra assignments")
	rootCmd.Flags().StringArrayVar(&onlyExprs, "only", nil, "extra `only` filter expressions")
	rootCmd.Flags().StringArrayVar(&noExprs, "no", nil, "extra `no` filter expressions")

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("cartconf failed")
		if isIOError(err) {
			os.Exit(3)
		}
		os.Exit(2)
	}
}

func run(log *logrus.Logger, target string, extraArgs, overwrite, onlyExprs, noExprs []string, contents bool) error {
	var src cartconf.Source
	if contents {
		src.Contents = target
	} else {
		src.Path = target
	}

	assignments, filters := splitExtraArgs(extraArgs)
	assignments = append(assignments, overwrite...)
	for _, expr := range onlyExprs {
		filters = append(filters, cartconf.ExtraFilter{Kind: "only", Expr: expr})
	}
	for _, expr := range noExprs {
		filters = append(filters, cartconf.ExtraFilter{Kind: "no", Expr: expr})
	}
	log.WithFields(logrus.Fields{
		"assignments": len(assignments),
		"filters":     len(filters),
	}).Debug("parsing configuration")

	enc := json.NewEncoder(os.Stdout)
	count := 0
	err := cartconf.Parse(src, cartconf.Options{ExtraAssignments: assignments, ExtraFilters: filters}, func(dict map[string]string) error {
		count++
		log.WithField("name", dict["name"]).Debug("emitting variant")
		return enc.Encode(dict)
	})
	log.WithField("count", count).Debug("expansion complete")
	return err
}

// splitExtraArgs classifies the CLI's trailing positional arguments into
// `key=value` extra assignments and `only X` / `no X` extra filters.
func splitExtraArgs(args []string) ([]string, []cartconf.ExtraFilter) {
	var assignments []string
	var filters []cartconf.ExtraFilter
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "only" || a == "no":
			if i+1 < len(args) {
				filters = append(filters, cartconf.ExtraFilter{Kind: a, Expr: args[i+1]})
				i++
			}
		case strings.Contains(a, "="):
			assignments = append(assignments, a)
		}
	}
	return assignments, filters
}

// isIOError reports whether err is (or wraps) an I/O failure on the
// config file or one of its includes: a filesystem error, or an
// *IncludeError recording that the loader failed to load a target. Other
// include errors (a cycle, a parse error inside an included source) are
// not I/O failures. os.IsNotExist/os.IsPermission only recognize a bare
// *fs.PathError, not one buried under an *IncludeError or a
// github.com/pkg/errors wrap (cartconf.go's Source.resolve wraps
// os.ReadFile failures with errors.Wrapf), so this walks the chain with
// the standard library's errors.Unwrap/errors.Is instead, which both
// *IncludeError's Unwrap and pkg/errors' wrapped types support.
func isIOError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if incErr, ok := e.(*cartconf.IncludeError); ok && incErr.Reason == "failed to load" {
			return true
		}
	}
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
