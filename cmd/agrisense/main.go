package main

import (
	"fmt"
	"os"
)

const usage = `Usage: agrisense <command> [flags]

Commands:
  run     follow the live push channel and serve the status API
  range   resolve a range query for one sensor and print a report
  token   issue a bearer token for the status API

Run "agrisense <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCommand(args)
	case "range":
		err = rangeCommand(args)
	case "token":
		err = tokenCommand(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agrisense %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
