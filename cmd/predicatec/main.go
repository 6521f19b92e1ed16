// Command predicatec is a reference CLI that wires the engine to a bare
// in-memory host (memvars.Store) with no real operators or transformations
// registered, to exercise the full compile -> transform -> evaluate
// pipeline end to end without a real host.
//
// Usage:
//
//	predicatec [-eval] [-var key=value ...] file.pred [file.pred ...]
//
// Each .pred file holds one rule body per nonblank, non-comment (';') line;
// a line starting with "(define" is passed to Engine.Define instead of
// being compiled as a rule. With -eval, every -var is loaded into the host
// var store and each rule's value after every phase is printed; without
// -eval, only the post-transform DAG (PredicateDebugReport) is printed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/predicate-engine/predicate/engine"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/memvars"
	"github.com/predicate-engine/predicate/value"
)

type varFlags map[string]string

func (v varFlags) String() string {
	pairs := make([]string, 0, len(v))
	for k, val := range v {
		pairs = append(pairs, k+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (v varFlags) Set(s string) error {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("predicatec: -var expects key=value, got %q", s)
	}
	v[key] = val
	return nil
}

func main() {
	eval := flag.Bool("eval", false, "feed -var values through every phase and print each rule's value")
	vars := make(varFlags)
	flag.Var(vars, "var", "key=value var to load into the host store before -eval (repeatable)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: predicatec [-eval] [-var key=value ...] file.pred [file.pred ...]")
		os.Exit(2)
	}

	defines, rules, err := readSources(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	e := engine.New(engine.Config{})
	for _, d := range defines {
		if err := e.Define(d); err != nil {
			log.Fatalf("predicatec: define: %v", err)
		}
	}
	if err := e.Compile(rules); err != nil {
		log.Fatalf("predicatec: compile: %v", err)
	}

	if !*eval {
		if err := e.DebugReport(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	store := memvars.NewStore()
	for k, raw := range vars {
		store.Set(k, parseVarValue(raw))
	}

	txn, err := e.NewTransaction(context.Background(), store, stdoutLogger{}, nil)
	if err != nil {
		log.Fatalf("predicatec: new transaction: %v", err)
	}

	for _, phase := range []hostio.Phase{
		hostio.PhaseRequestHeader,
		hostio.PhaseRequest,
		hostio.PhaseResponseHeader,
		hostio.PhaseResponse,
	} {
		results, err := txn.RunPhase(phase)
		if err != nil {
			log.Fatalf("predicatec: run phase %s: %v", phase, err)
		}
		for i, r := range results {
			fmt.Printf("[%s] rule-%d = %s\n", phase, i, r.Value.String())
		}
	}
}

// readSources splits every file's nonblank, non-comment lines into define
// forms and rule bodies, in file order.
func readSources(paths []string) (defines, rules []string, err error) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, ";") {
				continue
			}
			if strings.HasPrefix(line, "(define") {
				defines = append(defines, line)
				continue
			}
			rules = append(rules, line)
		}
		closeErr := f.Close()
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
		if closeErr != nil {
			return nil, nil, closeErr
		}
	}
	return defines, rules, nil
}

// parseVarValue treats a -var value as a number when it parses as one,
// and as a plain string otherwise.
func parseVarValue(raw string) value.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.NewNumber(n)
	}
	return value.NewString([]byte(raw))
}

type stdoutLogger struct{}

func (stdoutLogger) Log(level hostio.Level, file string, line int, format string, args ...interface{}) {
	fmt.Printf("[%d] "+format+"\n", append([]interface{}{level}, args...)...)
}
