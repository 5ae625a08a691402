package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/exprgraph/exprgraph"
)

// DetectCommand represents a command for detecting quadratic structure.
type DetectCommand struct{}

// NewDetectCommand returns a new instance of DetectCommand.
func NewDetectCommand() *DetectCommand {
	return &DetectCommand{}
}

// Run executes the "detect" subcommand.
func (cmd *DetectCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exprgraph-detect", flag.ContinueOnError)
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
		exprgraph.Release(&res.Expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%d: %v\n", res.Line, err)
			continue
		}

		fmt.Printf("%s\n", res.Input)
		if q, ok := exprgraph.DetectQuadratic(s); ok {
			cmd.printQuadratic(q)
		} else {
			fmt.Println("\tnot quadratic")
		}
		exprgraph.Release(&s)
	}
	return nil
}

// printQuadratic writes the decomposition one term per line.
func (cmd *DetectCommand) printQuadratic(q *exprgraph.Quadratic) {
	fmt.Printf("\tcapability: propagate=%v separate=%v\n",
		q.Capability.CanPropagate(), q.Capability.CanSeparate())
	if q.Constant != 0 {
		fmt.Printf("\tconstant: %g\n", q.Constant)
	}
	for _, t := range q.Terms {
		fmt.Printf("\tterm: base=%s lin=%g sqr=%g\n", t.Expr, t.LinCoef, t.SqrCoef)
	}
	for _, bl := range q.Bilinear {
		fmt.Printf("\tbilinear: %s * %s coef=%g\n", bl.Expr1, bl.Expr2, bl.Coef)
	}
}

func (cmd *DetectCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: exprgraph detect [arguments] [file]

Parses one expression per line from the file (or standard input),
simplifies it, and reports the quadratic decomposition if one exists.
`[1:])
}
