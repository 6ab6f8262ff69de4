/*
Optiquedemo is an interactive shell that exercises the optique combinator
engine against a small hand-built command line: a log-level option whose
accepted values depend on an earlier --format option (spec.md's running
"mode/log-level" example).

Usage:

	optiquedemo [flags]

The flags are:

	-c, --config FILE
		Load option default values from the given TOML file instead of the
		compiled-in defaults.

Once started, each line read is split into tokens with
github.com/kballard/go-shellquote and parsed with optique.Parse. Type "quit"
to exit.

This binary is demo/integration glue, not part of optique's public surface
(SPEC_FULL.md §4).
*/
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/dekarrin/optique"
	"github.com/dekarrin/optique/internal/config"
	"github.com/dekarrin/optique/internal/values"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitInitError indicates an unsuccessful program execution due to an
	// issue initializing the shell.
	ExitInitError
)

func main() {
	var configPath string
	for i, a := range os.Args[1:] {
		if a == "-c" || a == "--config" {
			if i+2 < len(os.Args) {
				configPath = os.Args[i+2]
			}
		}
	}

	defaults := config.Defaults{Format: "text", LogLevel: "info"}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "optiquedemo: %v\n", err)
			os.Exit(ExitInitError)
		}
		defaults = loaded
	}

	cmdline := buildCommandLine(defaults)

	rl, err := readline.NewEx(&readline.Config{Prompt: "optique> "})
	if err != nil {
		fmt.Fprintf(os.Stderr, "optiquedemo: create readline config: %v\n", err)
		os.Exit(ExitInitError)
	}
	defer rl.Close()

	runShell(rl, cmdline)
}

// buildCommandLine assembles the demo grammar: an Object with a --format
// option feeding a derived --log-level option, the way spec.md's worked
// example pairs a format source with a log-level value parser that only
// accepts "debug"/"trace" once format is "json".
func buildCommandLine(defaults config.Defaults) optique.Parser[map[string]any] {
	formatSrc, formatID := optique.Dependency[string](values.NewChoice("FORMAT", "text", "json"))

	logLevel := optique.Derive[string](
		"LEVEL",
		[]optique.Identity{formatID},
		func(resolved []any) (optique.ValueParser[string], error) {
			format, _ := resolved[0].(string)
			if format == "json" {
				return values.NewChoice("LEVEL", "info", "warn", "error", "debug", "trace"), nil
			}
			return values.NewChoice("LEVEL", "info", "warn", "error"), nil
		},
		func() []any { return []any{defaults.Format} },
	)

	return optique.Object(
		optique.F("format", optique.WithDefault(optique.Option(formatSrc, "--format", "-f"), defaults.Format)),
		optique.F("level", optique.WithDefault(optique.Option(logLevel, "--log-level", "-l"), defaults.LogLevel)),
		optique.F("verbose", optique.Flag("--verbose", "-v")),
		optique.F("extra", optique.Passthrough()),
	)
}

func runShell(rl *readline.Instance, cmdline optique.Parser[map[string]any]) {
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return
			}
			fmt.Fprintf(os.Stderr, "optiquedemo: %v\n", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		tokens, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "optiquedemo: %v\n", err)
			continue
		}

		result, err := optique.Parse(cmdline, tokens)
		if err != nil {
			fmt.Fprintf(os.Stderr, "optiquedemo: %v\n", err)
			continue
		}

		format := optique.Get[string](result, "format")
		level := optique.Get[string](result, "level")
		verbose := optique.Get[bool](result, "verbose")
		extra := optique.Get[[]string](result, "extra")
		if verbose {
			log.Printf("TRACE: tokens=%v format=%s level=%s extra=%v", tokens, format, level, extra)
		}
		fmt.Printf("format=%s level=%s verbose=%v extra=%v\n", format, level, verbose, extra)
	}
}
