// fur compiles Fur source code into bytecode and runs it in a stack-based
// virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/kerkeslager/fur-infinity/code"
	"github.com/kerkeslager/fur-infinity/compiler"
	"github.com/kerkeslager/fur-infinity/lexer"
	"github.com/kerkeslager/fur-infinity/parser"
	"github.com/kerkeslager/fur-infinity/repl"
	"github.com/kerkeslager/fur-infinity/symbol"
	"github.com/kerkeslager/fur-infinity/token"
	"github.com/kerkeslager/fur-infinity/vm"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Fur v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    Fur compiles source code into bytecode and runs it in a virtual machine.
    Without any flags, it starts an interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Execute a Fur script file
    -e, --eval <code>       Evaluate a Fur expression and print the result
    -d, --debug             Print the result and the disassembly after running
    --tokens                Print the token stream instead of running
    --ast                   Print the syntax tree instead of running
    --asm                   Print the disassembly instead of running
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f script.fur

    # Evaluate an expression
    %s -e "print('Hello, world')"

    # Show the bytecode for a file
    %s -f script.fur --asm

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute a Fur script file")
	evalFlag := flag.String("eval", "", "Evaluate a Fur expression and print the result")
	debugFlag := flag.Bool("debug", false, "Print the result and the disassembly after running")
	tokensFlag := flag.Bool("tokens", false, "Print the token stream instead of running")
	astFlag := flag.Bool("ast", false, "Print the syntax tree instead of running")
	asmFlag := flag.Bool("asm", false, "Print the disassembly instead of running")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Execute a Fur script file")
	flag.StringVar(evalFlag, "e", "", "Evaluate a Fur expression and print the result")
	flag.BoolVar(debugFlag, "d", false, "Print the result and the disassembly after running")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("Fur v%s\n", version)
		return
	}

	mode := runMode{
		tokens: *tokensFlag,
		ast:    *astFlag,
		asm:    *asmFlag,
		debug:  *debugFlag,
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, mode)
		return
	}

	if *evalFlag != "" {
		os.Exit(execute(*evalFlag, mode, true))
	}

	// Get current user for the REPL greeting
	username := ""
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// runMode selects between executing a program and dumping one of the
// intermediate forms.
type runMode struct {
	tokens bool
	ast    bool
	asm    bool
	debug  bool
}

// executeFile reads and executes a Fur script file.
func executeFile(filename string, mode runMode) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // Reading the script the user asked us to run.
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}

	os.Exit(execute(string(content), mode, mode.debug))
}

// execute runs source through the pipeline and returns the process exit
// code: an integer result converts directly, anything else is 0. Dump modes
// stop after the corresponding stage.
func execute(source string, mode runMode, printResult bool) int {
	if mode.tokens {
		l := lexer.New(source)
		for {
			tok := l.NextToken()
			fmt.Printf("%4d %-10s %q\n", tok.Line, tok.Type, tok.Literal)
			if tok.Type == token.EOF {
				break
			}
		}
		return 0
	}

	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()

	if len(p.Errors()) != 0 {
		printParserErrors(p.Errors())
		return 1
	}

	if mode.ast {
		if program != nil {
			fmt.Println(program.String())
		}
		return 0
	}

	symbols := symbol.NewTable()
	comp := compiler.New(symbols)
	co := code.New()

	start, err := comp.Compile(co, program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %s\n", err)
		return 1
	}

	if mode.asm {
		fmt.Print(co.DisassembleFrom(start))
		return 0
	}

	thread := vm.NewThread()
	result, err := thread.Run(co, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		return 70
	}

	if printResult {
		fmt.Println(result.Repr())
	}
	if mode.debug {
		fmt.Print(co.DisassembleFrom(start))
	}

	return result.AsSuccess()
}

// printParserErrors prints parser errors to stderr.
func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "Parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}
