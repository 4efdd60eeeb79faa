// Command meshcheck analyzes local STL and OBJ files and prints one JSON
// report per file.
//
//	meshcheck [-weld tol] [-reject-polygons] [-diagnostics] [-j n] file...
//
// The exit status is 1 if any file could not be read or loaded.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/loader"

	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type fileOutput struct {
	analysis.Report
	Diagnostics *analysis.Diagnostics `json:"diagnostics,omitempty"`
}

type fileError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("meshcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	weld := fs.Float64("weld", 0, "weld STL vertices closer than this distance (0 = exact match)")
	rejectPolygons := fs.Bool("reject-polygons", false, "fail on OBJ faces with more than 3 vertices")
	diagnostics := fs.Bool("diagnostics", false, "include load and topology diagnostics")
	jobs := fs.Int("j", runtime.NumCPU(), "number of files analyzed concurrently")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: meshcheck [flags] file...")
		fs.PrintDefaults()
		return 2
	}

	analyzer := analysis.NewAnalyzer(loader.Options{
		WeldTolerance:  *weld,
		RejectPolygons: *rejectPolygons,
	})

	files := fs.Args()
	outputs := make([]any, len(files))

	g := new(errgroup.Group)
	g.SetLimit(max(*jobs, 1))
	for i, path := range files {
		g.Go(func() error {
			outputs[i] = analyzeFile(analyzer, path, *diagnostics)
			return nil
		})
	}
	_ = g.Wait()

	status := 0
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	for _, out := range outputs {
		if _, failed := out.(fileError); failed {
			status = 1
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return status
}

func analyzeFile(analyzer *analysis.Analyzer, path string, withDiagnostics bool) any {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fileError{FileName: name, Error: err.Error()}
	}
	res, err := analyzer.Analyze(data, name)
	if err != nil {
		return fileError{FileName: name, Error: err.Error()}
	}
	out := fileOutput{Report: res.Report}
	if withDiagnostics {
		out.Diagnostics = &res.Diagnostics
	}
	return out
}
