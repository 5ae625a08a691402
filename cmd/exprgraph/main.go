package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "simplify":
		return NewSimplifyCommand().Run(ctx, args)
	case "detect":
		return NewDetectCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`exprgraph %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Exprgraph is a tool for working with symbolic nonlinear expression graphs.

Usage:

	exprgraph <command> [arguments]

The commands are:

	simplify    parse and simplify expressions, one per line
	detect      report the quadratic decomposition of expressions
	help        this screen
`[1:])
}
