package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lattelang/latte/compiler"
	"github.com/lattelang/latte/lexer"
	"github.com/lattelang/latte/parser"
	"github.com/lattelang/latte/token"
)

const (
	LAT_SUFFIX = ".lat"
	IR_SUFFIX  = ".ll"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-v|--version] [-emit-llvm] <file%s|dir>...\n", filepath.Base(os.Args[0]), LAT_SUFFIX)
	os.Exit(2)
}

// reportErrors prints accumulated diagnostics for one source file and
// reports whether any were present. Diagnostics from one pass gate the
// next, so cascading errors are never shown.
func reportErrors(file string, errs []*token.CompileError) bool {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s:%s\n", file, e)
	}
	return len(errs) > 0
}

// compileFile runs the full pipeline on one source file and returns the
// textual LLVM IR, or false when diagnostics were reported.
func compileFile(file string) (string, bool) {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", file, err)
		return "", false
	}

	l := lexer.New(string(source))
	p := parser.New(l)
	program := p.Program()
	if reportErrors(file, p.Errors()) {
		return "", false
	}

	st, errs := compiler.BuildSymbols(program)
	if reportErrors(file, errs) {
		return "", false
	}

	ck := compiler.NewChecker(st)
	if reportErrors(file, ck.Check(program)) {
		return "", false
	}

	name := strings.TrimSuffix(filepath.Base(file), LAT_SUFFIX)
	c := compiler.NewCompiler(name, st)
	c.Compile(program)
	return c.GenerateIR(), true
}

// buildBinary compiles the IR to an object file and links it with the
// cached runtime objects into an executable next to the source.
func buildBinary(file, ir string, cfg *Config) error {
	cacheDir := cfg.cacheDir()
	objDir := filepath.Join(cacheDir, "obj")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return fmt.Errorf("create obj dir: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(file), LAT_SUFFIX)
	llFile := filepath.Join(objDir, name+IR_SUFFIX)
	if err := os.WriteFile(llFile, []byte(ir), 0644); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}
	if cfg.EmitIR {
		sideLL := strings.TrimSuffix(file, LAT_SUFFIX) + IR_SUFFIX
		if err := os.WriteFile(sideLL, []byte(ir), 0644); err != nil {
			return fmt.Errorf("write IR: %w", err)
		}
	}

	rtObjs, err := prepareRuntime(cacheDir, cfg)
	if err != nil {
		return err
	}

	binFile := strings.TrimSuffix(file, LAT_SUFFIX)
	args := []string{cfg.OptLevel, llFile}
	args = append(args, rtObjs...)
	args = append(args, "-o", binFile)
	if out, err := exec.Command(cfg.CC, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("link %s: %v\n%s", binFile, err, out)
	}
	return nil
}

// collectFiles expands arguments into .lat files; a directory argument
// means every .lat file directly inside it.
func collectFiles(args []string) ([]string, bool) {
	var files []string
	ok := true
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			matches, _ := filepath.Glob(filepath.Join(arg, "*"+LAT_SUFFIX))
			if len(matches) == 0 {
				fmt.Fprintf(os.Stderr, "no %s files in %s\n", LAT_SUFFIX, arg)
				ok = false
			}
			files = append(files, matches...)
			continue
		}
		if !strings.HasSuffix(arg, LAT_SUFFIX) {
			fmt.Fprintf(os.Stderr, "skipping %s: not a %s file\n", arg, LAT_SUFFIX)
			ok = false
			continue
		}
		files = append(files, arg)
	}
	return files, ok
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	emitOnly := false
	args := []string{}
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-v", "--version":
			printVersion()
			return
		case "-emit-llvm":
			emitOnly = true
		default:
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		usage()
	}

	files, ok := collectFiles(args)
	failed := !ok
	for _, file := range files {
		cfg, err := loadConfig(filepath.Dir(file))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			continue
		}

		ir, ok := compileFile(file)
		if !ok {
			failed = true
			continue
		}
		if emitOnly {
			sideLL := strings.TrimSuffix(file, LAT_SUFFIX) + IR_SUFFIX
			if err := os.WriteFile(sideLL, []byte(ir), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "write IR: %v\n", err)
				failed = true
			}
			continue
		}
		if err := buildBinary(file, ir, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
