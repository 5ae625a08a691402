package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/exprgraph/exprgraph"
)

// SimplifyCommand represents a command for simplifying expressions.
type SimplifyCommand struct{}

// NewSimplifyCommand returns a new instance of SimplifyCommand.
func NewSimplifyCommand() *SimplifyCommand {
	return &SimplifyCommand{}
}

// Run executes the "simplify" subcommand.
func (cmd *SimplifyCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exprgraph-simplify", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many input files specified")
	}

	r, closer, err := openInput(fs.Args())
	if err != nil {
		return err
	}
	defer closer()

	b, err := newBuilder()
	if err != nil {
		return err
	}

	for _, res := range b.ParseLines(r) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%d: %v\n", res.Line, res.Err)
			continue
		}
		s, err := b.Simplify(res.Expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%d: %v\n", res.Line, err)
			exprgraph.Release(&res.Expr)
			continue
		}
		if *verbose {
			fmt.Printf("%s => %s\n", res.Input, s)
		} else {
			fmt.Println(s)
		}
		exprgraph.Release(&s)
		exprgraph.Release(&res.Expr)
	}
	return nil
}

func (cmd *SimplifyCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: exprgraph simplify [arguments] [file]

Parses one expression per line from the file (or standard input) and
prints the simplified form of each.

Arguments:

	-v
	    Print the original expression alongside the simplified form.
`[1:])
}

// newBuilder constructs a builder over a registry with the default
// operator handlers installed.
func newBuilder() (*exprgraph.Builder, error) {
	reg := exprgraph.NewRegistry()
	if err := exprgraph.RegisterDefaults(reg); err != nil {
		return nil, err
	}
	return exprgraph.NewBuilder(reg)
}

// openInput returns a reader over the single optional file argument,
// defaulting to standard input.
func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
