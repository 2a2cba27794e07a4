package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/interpreter"
	"knack/interpreter-go/pkg/runtime"
)

const (
	historyFile = ".knack_history"
	promptMain  = "==> "
	promptCont  = "... "
	replBanner  = "knack repl - enter one JSON element per input, :help for commands, Ctrl+D to exit."
	replHelp    = `repl commands:
  :help            Show this help
  :quit / :exit    Exit the repl
  :reset           Start over with a fresh scope
`
)

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args, " "))
		return 1
	}

	fmt.Fprintln(os.Stdout, replBanner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	interp := newReplInterpreter()

	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(os.Stdout)
			break
		}
		if code == "" {
			continue
		}
		if strings.HasPrefix(code, ":") {
			if done := handleReplCommand(interp, code); done {
				break
			}
			continue
		}

		el, err := ast.DecodeElement([]byte(code))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		val, err := interp.Evaluate(el)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "=> %s\n", val.String())
		ln.AppendHistory(strings.Join(strings.Fields(code), " "))
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// newReplInterpreter wires the repl scope: core commands, print, and a
// resolver that reports external command calls instead of the placeholder.
func newReplInterpreter() *interpreter.Interpreter {
	interp := interpreter.NewWithResolver(reportExternalCommand)
	registerPrint(interp.Scope())
	return interp
}

func reportExternalCommand(name string, args []runtime.Value) (runtime.Value, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, arg.String())
	}
	fmt.Fprintf(os.Stdout, "[external] %s(%s)\n", name, strings.Join(parts, ", "))
	return runtime.NothingValue{}, nil
}

func handleReplCommand(interp *interpreter.Interpreter, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Fprint(os.Stdout, replHelp)
	case ":quit", ":exit":
		return true
	case ":reset":
		*interp = *newReplInterpreter()
		fmt.Fprintln(os.Stdout, "scope reset.")
	default:
		fmt.Fprintln(os.Stdout, "unknown command. Type :help for help.")
	}
	return false
}

// readInput accumulates lines until they decode as a complete JSON element,
// using a decode probe to decide when to show the continuation prompt.
// Repl commands (leading ':') return as soon as they are typed.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		b.WriteString(line)
		trimmed := strings.TrimSpace(b.String())
		if trimmed == "" {
			b.Reset()
			continue
		}
		if b.Len() == len(line) && strings.HasPrefix(trimmed, ":") {
			return trimmed, true
		}
		if _, err := ast.DecodeElement([]byte(trimmed)); err != nil && isIncompleteJSON(err) {
			b.WriteString("\n")
			continue
		}
		return trimmed, true
	}
}

func isIncompleteJSON(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unexpected end of JSON input")
}
