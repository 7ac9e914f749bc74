package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/audiodrv/spcmml"
	"github.com/audiodrv/spcmml/internal/bytecode"
	"github.com/audiodrv/spcmml/internal/fileutil"
	"github.com/audiodrv/spcmml/internal/samples"
)

func main() {
	var (
		samplesPath = flag.String("samples", "", "sample table JSON (required)")
		outDir      = flag.String("o", ".", "output directory for compiled .bin songs")
		commonPath  = flag.String("common", "", "write the common audio data blob (single input only)")
		list        = flag.Bool("list", false, "print per-channel tick totals and bytecode sizes")
		dis         = flag.Bool("dis", false, "print a bytecode disassembly for each channel")
	)
	flag.Parse()

	if *samplesPath == "" || flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -samples table.json [flags] song.mml ...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *commonPath != "" && flag.NArg() != 1 {
		log.Fatal("-common needs exactly one input song (instruments are per-song)")
	}

	tableJSON, err := os.ReadFile(*samplesPath)
	if err != nil {
		log.Fatal(err)
	}
	table, err := spcmml.LoadSampleTable(tableJSON)
	if err != nil {
		log.Fatal(err)
	}

	// independent songs compile in parallel; reports print in input order
	// once everything has finished
	reports := make([]string, flag.NArg())
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range flag.Args() {
		i, path := i, path
		g.Go(func() error {
			report, err := compileOne(path, *outDir, *commonPath, table, *list, *dis)
			if err != nil {
				return fmt.Errorf("%s:\n%v", path, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	for _, r := range reports {
		fmt.Print(r)
	}
}

func compileOne(path, outDir, commonPath string, table *samples.Table, list, dis bool) (string, error) {
	source, err := fileutil.ReadSource(path)
	if err != nil {
		return "", err
	}
	data, err := spcmml.CompileSong(source, table)
	if err != nil {
		return "", err
	}
	song, err := spcmml.SongBinary(data)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, base+".bin")
	if err := os.WriteFile(outPath, song, 0o644); err != nil {
		return "", err
	}

	if commonPath != "" {
		common, err := spcmml.CommonBinary(table, data)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(commonPath, common, 0o644); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d bytes\n", outPath, len(song))
	if list || dis {
		for _, ch := range data.Channels {
			fmt.Fprintf(&sb, "  channel %s: %d ticks, %d bytes, %d nested loops\n",
				ch.Name, ch.TickCounter, len(ch.Bytecode), ch.MaxNestedLoops)
			if dis {
				indent(&sb, bytecode.Disassemble(ch.Bytecode))
			}
		}
		for _, sub := range data.Subroutines {
			fmt.Fprintf(&sb, "  %s: %d ticks, %d bytes\n",
				sub.Name, sub.TickCounter, len(sub.Bytecode))
			if dis {
				indent(&sb, bytecode.Disassemble(sub.Bytecode))
			}
		}
	}
	return sb.String(), nil
}

func indent(sb *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}
