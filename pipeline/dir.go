package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/poiesic/chunkline/report"
)

// FileResult is the outcome of one file in a directory run.
type FileResult struct {
	Input   string
	Output  string
	Summary *report.Summary
	Err     error
}

// Inputs lists the files in dir that mode takes as input, in name order.
func Inputs(mode Mode, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if IsInput(mode, path) {
			inputs = append(inputs, path)
		}
	}
	slices.Sort(inputs)
	return inputs, nil
}

// RunDir runs every input file of dir through RunFile, several files at a time.
// Results are returned in name order. The error joins the failures of
// individual files; the other files still complete.
func (p *Pipeline) RunDir(ctx context.Context, dir string) ([]FileResult, error) {
	mode := p.Mode()
	if mode == ModePassthrough {
		return nil, fmt.Errorf("%w: directory runs need an output file", ErrUnknownMode)
	}

	inputs, err := Inputs(mode, dir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputs, dir)
	}

	p.logger.Info("starting directory run", "dir", dir, "files", len(inputs), "workers", p.pool.Cap())

	results := make([]FileResult, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		results[i] = FileResult{Input: in, Output: OutputPath(mode, in)}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res := &results[i]
			if err := ctx.Err(); err != nil {
				res.Err = err
				return
			}
			res.Summary, res.Err = p.RunFile(ctx, res.Input, res.Output)
			if res.Err != nil {
				p.logger.Error("file failed", "input", res.Input, "err", res.Err)
			}
		}
		if err := p.pool.Submit(task); err != nil {
			results[i].Err = err
			wg.Done()
		}
	}
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Input, res.Err))
		}
	}
	return results, errors.Join(errs...)
}
