// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rdibake converts the DWARF debug info of an ELF, PE, or Mach-O
// binary into an RDI debug info file.
//
// Usage: rdibake [flags] binary
//
// By default the output is written to binary.rdi. Additional flags
// may be given in the RDIBAKE_FLAGS environment variable, using shell
// quoting. These are processed before the command line flags.
//
// With -watch, rdibake keeps running and rebakes whenever binary is
// rewritten.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/aclements/go-rdi/internal/dwarfload"
	"github.com/aclements/go-rdi/internal/obj"
	"github.com/aclements/go-rdi/internal/typegraph"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
	"github.com/aclements/go-rdi/rdim/bake"
)

var (
	flagOut       = flag.String("o", "", "write the baked file to `file` (default binary.rdi)")
	flagJobs      = flag.Int("j", runtime.GOMAXPROCS(0), "bake with `n` workers")
	flagCompress  = flag.String("compress", "none", "compress sections with `codec` (none or lz4)")
	flagStats     = flag.Bool("stats", false, "print bake statistics")
	flagWatch     = flag.Bool("watch", false, "rebake whenever the binary changes")
	flagTypeGraph = flag.String("typegraph", "", "write the type graph to `file` in Dot form")
	flagVerbose   = flag.Bool("v", false, "log the time taken by each stage")
)

// job is one configured bake.
type job struct {
	bin, out  string
	typeGraph string
	workers   int
	codec     rdi.Codec
	stats     bool
	logger    *log.Logger
	progress  *progress
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rdibake: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] binary\n", os.Args[0])
		flag.PrintDefaults()
	}
	args, err := envArgs(os.Getenv("RDIBAKE_FLAGS"), os.Args[1:])
	if err != nil {
		log.Fatalf("RDIBAKE_FLAGS: %v", err)
	}
	flag.CommandLine.Parse(args)
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	codec, err := parseCodec(*flagCompress)
	if err != nil {
		log.Fatal(err)
	}
	j := &job{
		bin:       flag.Arg(0),
		out:       *flagOut,
		typeGraph: *flagTypeGraph,
		workers:   *flagJobs,
		codec:     codec,
		stats:     *flagStats,
		progress:  newProgress(os.Stderr),
	}
	if j.out == "" {
		j.out = j.bin + ".rdi"
	}
	if *flagVerbose {
		j.logger = log.New(os.Stderr, "rdibake: ", log.Lmsgprefix)
	}

	err = j.run()
	if !*flagWatch {
		if err != nil {
			log.Fatal(err)
		}
		return
	}
	if err != nil {
		log.Print(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := watch(ctx, j.bin, func() {
		if err := j.run(); err != nil {
			log.Print(err)
		}
	}); err != nil {
		log.Fatal(err)
	}
}

// envArgs returns the flags in env followed by args.
func envArgs(env string, args []string) ([]string, error) {
	if env == "" {
		return args, nil
	}
	words, err := shellquote.Split(env)
	if err != nil {
		return nil, err
	}
	return append(words, args...), nil
}

func parseCodec(name string) (rdi.Codec, error) {
	switch name {
	case "none", "":
		return nil, nil
	case "lz4":
		return rdi.LZ4{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// run bakes j.bin into j.out.
func (j *job) run() error {
	start := time.Now()
	j.progress.Printf("reading %s", j.bin)
	data, release, err := mapFile(j.bin)
	if err != nil {
		j.progress.Clear()
		return errors.Wrap(err, "reading binary")
	}
	defer release()

	o, err := obj.Open(bytes.NewReader(data))
	if err != nil {
		j.progress.Clear()
		return errors.Wrapf(err, "%s", j.bin)
	}
	j.progress.Printf("loading debug info")
	m, err := dwarfload.LoadObj(o, filepath.Base(j.bin), rdi.Hash(data), j.logger)
	if err != nil {
		j.progress.Clear()
		return errors.Wrapf(err, "%s", j.bin)
	}

	j.progress.Printf("baking")
	var st bake.Stats
	b, err := bake.Run(m, bake.Options{
		Workers: j.workers,
		Codec:   j.codec,
		Logger:  j.logger,
		Stats:   &st,
	})
	j.progress.Clear()
	if err != nil {
		return err
	}

	if err := writeFile(j.out, b.WriteTo); err != nil {
		return errors.Wrap(err, "writing output")
	}
	if j.typeGraph != "" {
		// Bake resolved incomplete types, so the graph shows
		// references to their definitions.
		if err := writeFile(j.typeGraph, func(w io.Writer) (int64, error) {
			return 0, typeGraphDot(m).Fprint(rdim.TypeGraph(m), w)
		}); err != nil {
			return errors.Wrap(err, "writing type graph")
		}
	}
	if j.stats {
		st.Fprint(os.Stdout)
	}
	log.Printf("wrote %s in %v", j.out, time.Since(start).Round(time.Millisecond))
	return nil
}

// writeFile writes path using write. The file is replaced atomically,
// so readers never see a partial file.
func writeFile(path string, write func(io.Writer) (int64, error)) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func typeGraphDot(m *rdim.Model) typegraph.Dot {
	typ := func(node int) *rdim.Type { return m.Types.At(node - 1) }
	return typegraph.Dot{
		Name: m.TopLevel.ExeName,
		Label: func(node int) string {
			t := typ(node)
			if t.Name == "" {
				return fmt.Sprintf("%d %v", node, t.Kind)
			}
			return fmt.Sprintf("%d %s", node, t.Name)
		},
		Style: func(node int) string {
			if typ(node).Kind.IsIncomplete() {
				return "style=dashed"
			}
			return ""
		},
		EdgeLabel: func(node, i int) string {
			// Out edges are the direct type, then the non-nil
			// parameter types.
			t := typ(node)
			if t.DirectType != nil {
				if i == 0 {
					return ""
				}
				i--
			}
			for j, p := range t.ParamTypes {
				if p == nil {
					continue
				}
				if i == 0 {
					return fmt.Sprintf("param %d", j)
				}
				i--
			}
			return ""
		},
		Omit: func(node int) bool { return node == 0 },
	}
}

// progress prints a transient status line when w is a terminal.
type progress struct {
	w    io.Writer
	tty  bool
	used bool
}

func newProgress(f *os.File) *progress {
	return &progress{w: f, tty: term.IsTerminal(int(f.Fd()))}
}

func (p *progress) Printf(format string, args ...any) {
	if !p.tty {
		return
	}
	fmt.Fprintf(p.w, "\r\x1b[Krdibake: "+format+"...", args...)
	p.used = true
}

func (p *progress) Clear() {
	if p.used {
		fmt.Fprint(p.w, "\r\x1b[K")
		p.used = false
	}
}
