// pycdump prints the marshalled contents of .pyc files.
//
// By default each argument is parsed as a complete pyc file and its
// header and object tree are printed. With --raw the file is treated
// as a bare marshal stream and --python selects the format version.
//
// --verify re-encodes whatever was decoded and compares it against
// the original bytes, reporting the first difference. --resolve
// inlines reference markers before printing, which reads better;
// only markers on a reference cycle survive it.
package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	pymarshal "github.com/Svenskithesource/python-marshal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pycdump: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		raw        bool
		pythonFlag string
		verify     bool
		resolve    bool
		showRefs   bool
	)

	flagSet := pflag.NewFlagSet("pycdump", pflag.ContinueOnError)
	flagSet.BoolVar(&raw, "raw", false, "treat input as a bare marshal stream without a pyc header")
	flagSet.StringVar(&pythonFlag, "python", "", "Python version for --raw input, e.g. 3.11")
	flagSet.BoolVar(&verify, "verify", false, "re-encode the decoded object and compare with the input")
	flagSet.BoolVar(&resolve, "resolve", false, "inline acyclic references before printing")
	flagSet.BoolVar(&showRefs, "refs", false, "print the reference table")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pycdump [flags] file.pyc ...\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		flagSet.Usage()
		return fmt.Errorf("no input files")
	}

	var version pymarshal.Version
	if raw {
		v, err := parseVersion(pythonFlag)
		if err != nil {
			return err
		}
		version = v
	} else if pythonFlag != "" {
		return fmt.Errorf("--python only applies to --raw input")
	}

	for _, path := range args {
		if len(args) > 1 {
			fmt.Printf("== %s\n", path)
		}
		if err := dumpFile(path, version, raw, verify, resolve, showRefs); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func parseVersion(s string) (pymarshal.Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if ok {
		ma, err1 := strconv.Atoi(major)
		mi, err2 := strconv.Atoi(minor)
		if err1 == nil && err2 == nil {
			v := pymarshal.Version{Major: ma, Minor: mi}
			if v.Supported() {
				return v, nil
			}
		}
	}
	return pymarshal.Version{}, fmt.Errorf("unsupported --python version %q", s)
}

func dumpFile(path string, version pymarshal.Version, raw, verify, resolve, showRefs bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var (
		obj  pymarshal.Object
		refs pymarshal.Refs
		body []byte
	)
	if raw {
		body = data
		obj, refs, err = pymarshal.Decode(data, version)
		if err != nil {
			return err
		}
	} else {
		f, err := pymarshal.ReadPyc(bytes.NewReader(data))
		if err != nil {
			return err
		}
		version = f.Version
		obj, refs = f.Object, f.Refs
		body = data[16:]
		printHeader(f)
	}

	if verify {
		out, err := pymarshal.Encode(obj, refs, version)
		if err != nil {
			return fmt.Errorf("re-encode: %w", err)
		}
		if off, same := firstDiff(body, out); !same {
			return fmt.Errorf("re-encoded stream differs at offset %d (%d bytes in, %d bytes out)",
				off, len(body), len(out))
		}
		fmt.Printf("verify: %d bytes round-trip\n", len(body))
	}

	if resolve {
		obj, refs, err = pymarshal.ResolveRefs(obj, refs)
		if err != nil {
			return err
		}
	}

	if showRefs {
		used := pymarshal.UsedRefs(obj)
		fmt.Printf("refs: %d stored\n", len(refs))
		for i, r := range refs {
			fmt.Printf("  @%d (%d loads): %s\n", i, used[i], pymarshal.Repr(r))
		}
	}

	dumpObject(obj, 0)
	return nil
}

func printHeader(f *pymarshal.PycFile) {
	fmt.Printf("python: %s\n", f.Version)
	if f.HashBased() {
		check := ""
		if f.Flags&pymarshal.PycFlagCheckSource != 0 {
			check = ", checked"
		}
		fmt.Printf("invalidation: hash-based (% x%s)\n", f.Stamp, check)
	} else {
		fmt.Printf("invalidation: timestamp (mtime %d, size %d)\n", f.MTime(), f.SourceSize())
	}
}

func firstDiff(a, b []byte) (int, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i, false
		}
	}
	if len(a) != len(b) {
		return n, false
	}
	return 0, true
}

// dumpObject prints obj as an indented tree. Code objects get one
// line per field; everything else prints on one line via Repr.
func dumpObject(obj pymarshal.Object, indent int) {
	pad := strings.Repeat("  ", indent)

	if sr, ok := obj.(pymarshal.StoreRef); ok {
		if code := asCode(sr.Value); code != nil {
			fmt.Printf("%s@%d=\n", pad, sr.Index)
			dumpObject(sr.Value, indent)
			return
		}
	}

	switch v := obj.(type) {
	case *pymarshal.Code310:
		fmt.Printf("%scode (3.10)\n", pad)
		dumpField := func(name string, f pymarshal.Object) {
			fmt.Printf("%s  %-16s ", pad, name)
			if asCode(deref(f)) != nil {
				fmt.Println()
				dumpObject(f, indent+2)
			} else {
				fmt.Println(pymarshal.Repr(f))
			}
		}
		fmt.Printf("%s  argcount=%d posonly=%d kwonly=%d nlocals=%d stacksize=%d flags=%#x\n",
			pad, v.ArgCount, v.PosOnlyArgCount, v.KwOnlyArgCount, v.NLocals, v.StackSize, uint32(v.Flags))
		dumpField("name", v.Name)
		dumpField("filename", v.Filename)
		fmt.Printf("%s  %-16s %d\n", pad, "firstlineno", v.FirstLineNo)
		dumpField("code", v.Code)
		dumpConsts(v.Consts, pad, indent)
		dumpField("names", v.Names)
		dumpField("varnames", v.VarNames)
		dumpField("freevars", v.FreeVars)
		dumpField("cellvars", v.CellVars)
		dumpField("lnotab", v.LNoTab)

	case *pymarshal.Code311:
		fmt.Printf("%scode (3.11+)\n", pad)
		dumpField := func(name string, f pymarshal.Object) {
			fmt.Printf("%s  %-16s ", pad, name)
			if asCode(deref(f)) != nil {
				fmt.Println()
				dumpObject(f, indent+2)
			} else {
				fmt.Println(pymarshal.Repr(f))
			}
		}
		fmt.Printf("%s  argcount=%d posonly=%d kwonly=%d stacksize=%d flags=%#x\n",
			pad, v.ArgCount, v.PosOnlyArgCount, v.KwOnlyArgCount, v.StackSize, uint32(v.Flags))
		dumpField("name", v.Name)
		dumpField("qualname", v.QualName)
		dumpField("filename", v.Filename)
		fmt.Printf("%s  %-16s %d\n", pad, "firstlineno", v.FirstLineNo)
		dumpField("code", v.Code)
		dumpConsts(v.Consts, pad, indent)
		dumpField("names", v.Names)
		dumpField("localsplusnames", v.LocalsPlusNames)
		dumpField("localspluskinds", v.LocalsPlusKinds)
		dumpField("linetable", v.LineTable)
		dumpField("exceptiontable", v.ExceptionTable)

	default:
		fmt.Printf("%s%s\n", pad, pymarshal.Repr(obj))
	}
}

// dumpConsts expands a consts tuple so that nested code objects print
// as trees instead of one-line reprs.
func dumpConsts(consts pymarshal.Object, pad string, indent int) {
	t, ok := deref(consts).(pymarshal.Tuple)
	if !ok {
		fmt.Printf("%s  %-16s %s\n", pad, "consts", pymarshal.Repr(consts))
		return
	}
	fmt.Printf("%s  consts (%d)\n", pad, len(t.Items))
	for i, item := range t.Items {
		if asCode(deref(item)) != nil {
			fmt.Printf("%s    [%d]\n", pad, i)
			dumpObject(item, indent+3)
		} else {
			fmt.Printf("%s    [%d] %s\n", pad, i, pymarshal.Repr(item))
		}
	}
}

// deref unwraps a StoreRef so the value behind it can be inspected.
// A plain Ref stays as is: the table entry would be the same object
// already printed at its store site.
func deref(obj pymarshal.Object) pymarshal.Object {
	if sr, ok := obj.(pymarshal.StoreRef); ok {
		return sr.Value
	}
	return obj
}

func asCode(obj pymarshal.Object) pymarshal.Object {
	switch obj.(type) {
	case *pymarshal.Code310, *pymarshal.Code311:
		return obj
	}
	return nil
}
