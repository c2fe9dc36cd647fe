// Program compilador runs the front-end pipeline — lexer, parser, semantic
// analyzer — over a single source file and prints a six-section console
// report: lexical analysis, syntactic analysis, syntactic validations, the
// abstract syntax tree, the symbol table, and the final memory report.
//
// Usage: compilador [--mem-limit BYTES] [--no-color] [--dump-tokens] FILE
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pborman/getopt"

	"github.com/vitortec/compilador/internal/ast"
	"github.com/vitortec/compilador/internal/lexer"
	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/parser"
	"github.com/vitortec/compilador/internal/report"
	"github.com/vitortec/compilador/internal/sema"
	"github.com/vitortec/compilador/internal/source"
	"github.com/vitortec/compilador/internal/symtab"
	"github.com/vitortec/compilador/internal/token"
)

// defaultMemLimit mirrors the original driver's fixed 2048 KiB ceiling.
const defaultMemLimit = 2048 * 1024

// exitIfError prints err to stderr and exits 1, if it is non-nil.
func exitIfError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop(1)
	}
}

var stop = os.Exit

func main() {
	var memLimit uint64
	var noColor bool
	var dumpTokens bool
	getopt.Uint64VarLong(&memLimit, "mem-limit", 0, "maximum logical memory usage in bytes", "BYTES")
	getopt.BoolVarLong(&noColor, "no-color", 0, "disable colored diagnostic output")
	getopt.BoolVarLong(&dumpTokens, "dump-tokens", 0, "print every token before parsing")
	getopt.SetParameters("FILE")
	getopt.Parse()

	if noColor {
		color.NoColor = true
	}
	if memLimit == 0 {
		memLimit = defaultMemLimit
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "uso: %s [--mem-limit BYTES] [--no-color] [--dump-tokens] <arquivo-fonte>\n", os.Args[0])
		stop(1)
	}

	f, err := os.Open(args[0])
	exitIfError(err)
	defer f.Close()

	stderrBanner := color.New(color.FgGreen)
	stderrBanner.Fprintf(os.Stderr, "Limite máximo de memória: %d bytes\n", memLimit)

	accountant := mem.New(memLimit)
	sink := report.NewSink()
	exitCode := run(f, accountant, sink, dumpTokens)

	sink.Flush(os.Stdout)
	if err := accountant.Cleanup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop(exitCode)
}

// run executes the pipeline, printing each of the six report sections as
// its stage completes, and returns the process exit code. After a
// syntactic error it skips semantic analysis but still prints the
// remaining sections, ending with the memory report; a fatal lexical error
// or a failed syntactic validation returns before the tree is printed.
func run(f *os.File, accountant *mem.Accountant, sink *report.Sink, dumpTokens bool) int {
	report.Banner(os.Stdout, "ANÁLISE LÉXICA")
	src := source.New(bufio.NewReader(f))
	lx := lexer.New(src, accountant)

	if dumpTokens {
		// Dump from an unaccounted lexer over the same bytes: this is a
		// debug trace, not part of the pipeline whose memory usage the
		// final report describes. src has already buffered from f, so
		// rewind before reading the bytes again.
		if _, err := f.Seek(0, 0); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		dumpLexer := lexer.New(source.New(bufio.NewReader(f)), nil)
		if code, ok := dumpAllTokens(dumpLexer); !ok {
			return code
		}
		if _, err := f.Seek(0, 0); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		src = source.New(bufio.NewReader(f))
		lx = lexer.New(src, accountant)
	}
	fmt.Println("Análise léxica concluída com sucesso!")

	report.Banner(os.Stdout, "ANÁLISE SINTÁTICA")
	p := parser.New(lx, accountant, sink)
	program := p.ParseProgram()
	if err := p.LexFatal(); err != nil {
		fmt.Println("Erros encontrados durante a análise léxica.")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	exitCode := 0
	if p.HadError() {
		fmt.Println("Erros encontrados durante a análise sintática.")
		exitCode = 1
	} else {
		fmt.Println("Análise sintática concluída com sucesso!")
	}

	report.Banner(os.Stdout, "VALIDAÇÕES SINTÁTICAS")
	if !parser.ValidateDeclarationSequence(program, sink) {
		fmt.Println("Erro: sequência de declarações inválida")
		return 1
	}
	fmt.Println("✓ Sequência de declarações válida")
	if !parser.ValidateSpacingRules(program) {
		fmt.Println("Erro: regras de espaçamento não respeitadas")
		return 1
	}
	fmt.Println("✓ Regras de espaçamento respeitadas")
	if !parser.ValidateVariableUsage(program) {
		fmt.Println("Erro: uso inválido de variáveis")
		return 1
	}
	fmt.Println("✓ Uso de variáveis válido")

	report.Banner(os.Stdout, "ÁRVORE SINTÁTICA ABSTRATA")
	ast.Print(os.Stdout, program, 0)

	analyzer := sema.New(accountant, sink)
	if exitCode == 0 {
		if analyzer.Analyze(program) {
			fmt.Println("Análise semântica concluída com sucesso!")
		} else {
			fmt.Println("Erros encontrados durante a análise semântica.")
		}
	}

	report.Banner(os.Stdout, "TABELA DE SÍMBOLOS")
	symtab.Dump(os.Stdout, analyzer.SymTab())

	ast.Free(accountant, program)

	report.Banner(os.Stdout, "RELATÓRIO DE MEMÓRIA")
	fmt.Printf("Uso atual: %d bytes\n", accountant.CurrentUsage())
	fmt.Printf("Pico de uso: %d bytes\n", accountant.PeakUsage())

	return exitCode
}

// dumpAllTokens drains lx for --dump-tokens diagnostics, printing every
// token on its own line. It returns (exitCode, false) if a fatal lexical
// error interrupts the stream.
func dumpAllTokens(lx *lexer.Lexer) (int, bool) {
	for {
		tok, err := lx.NextToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1, false
		}
		fmt.Println(tok.String())
		if tok.Kind == token.EOF {
			return 0, true
		}
	}
}
