// Package main provides the entry point for cachesim, a trace-driven,
// multi-level CPU cache hierarchy simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/instfile"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simerr"
	"github.com/sarchlab/cachesim/system"
)

var verbose = flag.Bool("v", false, "Verbose output: echo each Build-phase command")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: cachesim [options] <instructions.txt>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "cachesim: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	trace, err := report.NewFileTrace()
	if err != nil {
		return err
	}
	defer func() { _ = trace.Close() }()

	sys := system.New(report.NewFileSink(), trace)
	sys.Verbose = *verbose

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*simerr.InvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	if parseErr := instfile.Parse(f, sys, func(w error) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}); parseErr != nil {
		return parseErr
	}

	if !sys.Ran() {
		fmt.Fprintln(os.Stderr, "warning: instruction file never reached ins; nothing was run")
	}
	return nil
}
