package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fmaggi/matiria"
)

type args struct {
	inputPath *string
	disasm    *bool
	astOnly   *bool
}

func readArgs() *args {
	a := &args{
		inputPath: flag.String("input", "", "Path to the source file"),
		disasm:    flag.Bool("disasm", false, "Print bytecode disassembly instead of running"),
		astOnly:   flag.Bool("ast-only", false, "Stop after parsing and validating, without running"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()
	if *a.inputPath == "" {
		log.Fatal("input not informed")
	}

	source, err := os.ReadFile(*a.inputPath)
	if err != nil {
		log.Fatal(err)
	}

	cfg := matiria.NewConfig()
	pkg, diags, err := matiria.Compile(source, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if diags.HasErrors() {
		fmt.Fprintln(os.Stderr, diags.String())
		os.Exit(1)
	}

	if *a.disasm {
		for _, obj := range pkg.Order {
			if fn, ok := obj.(*matiria.FunctionObject); ok {
				fmt.Print(fn.Chunk.HighlightDisassemble())
			}
		}
		return
	}
	if *a.astOnly {
		return
	}

	result, err := matiria.Run(pkg, cfg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.String())
}
