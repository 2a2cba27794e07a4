package main

import (
	"fmt"
	"os"
)

const cliToolVersion = "knack-cli 0.0.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "check":
		return runCheck(args[1:])
	case "repl":
		return runRepl(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		return runEntry(args)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  knack run [file.knack]")
	fmt.Fprintln(os.Stderr, "  knack <file.knack>")
	fmt.Fprintln(os.Stderr, "  knack check [file.knack]")
	fmt.Fprintln(os.Stderr, "  knack repl")
	fmt.Fprintln(os.Stderr, "  knack deps install")
	fmt.Fprintln(os.Stderr, "  knack deps update [dependency ...]")
	fmt.Fprintln(os.Stderr, "  knack version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Without a file argument, run and check look for package.yml in the")
	fmt.Fprintln(os.Stderr, "current directory or above and stage the package's programs.")
}
