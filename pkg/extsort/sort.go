// Package extsort implements the two-way external merge sort over a heap
// file's data pages: the first pages are sorted individually and spilled
// as runs, then merged pairwise until one run remains and is promoted to
// the final result file.
package extsort

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"heapdb/pkg/page"
)

// MaxInitialRuns is the number of pages sorted and spilled as individual
// runs before merging begins; any further pages are not part of the sort.
const MaxInitialRuns = 7

// ResultFileName is the literal name of the final merged output file.
const ResultFileName = "result"

// ErrNoPages is returned when Sort is called with nothing to sort.
var ErrNoPages = errors.New("extsort: no pages to sort")

// Options configures where spill files are written and whether they are
// compressed.
type Options struct {
	WorkDir  string
	Compress bool
}

// DefaultOptions returns the working directory and compression defaults.
func DefaultOptions() Options {
	return Options{WorkDir: ".", Compress: true}
}

type run struct {
	ids  []string
	path string
}

// Sort orders the records across pages (up to the first MaxInitialRuns of
// them) by the byte at fieldOffset within each record, and writes the
// fully merged result to a file literally named "result" inside
// opts.WorkDir. It returns that file's path and the number of records
// sorted.
func Sort(pages []*page.Page, fieldOffset int, opts Options) (string, int, error) {
	if len(pages) == 0 {
		return "", 0, ErrNoPages
	}
	if err := os.MkdirAll(opts.WorkDir, 0755); err != nil {
		return "", 0, fmt.Errorf("extsort: creating work dir %s: %w", opts.WorkDir, err)
	}

	initial := pages
	if len(initial) > MaxInitialRuns {
		initial = initial[:MaxInitialRuns]
	}

	// One uuid per invocation keeps spill names apart from any other sort
	// sharing WorkDir; runs inside it are numbered, so a merged run's name
	// stays short however many run ids it joins.
	sortID := uuid.NewString()
	runs := make([]run, 0, len(initial))
	total := 0
	for k, pg := range initial {
		sorted := pg.Sort(fieldOffset)
		total += len(sorted)

		id := fmt.Sprintf("%d", k)
		path := filepath.Join(opts.WorkDir, fmt.Sprintf("%s_%s_0", sortID, id))
		if err := writeRun(path, sorted, opts.Compress); err != nil {
			return "", 0, err
		}
		runs = append(runs, run{ids: []string{id}, path: path})
	}

	level := 1
	for len(runs) > 1 {
		merged, err := mergeRound(runs, level, fieldOffset, sortID, opts)
		if err != nil {
			return "", 0, err
		}
		runs = merged
		level++
	}

	resultPath := filepath.Join(opts.WorkDir, ResultFileName)
	if err := os.Rename(runs[0].path, resultPath); err != nil {
		return "", 0, fmt.Errorf("extsort: finalizing result: %w", err)
	}
	return resultPath, total, nil
}

// mergeRound pairs runs left to right, merging each pair into one spill at
// the next level. A trailing unpaired run is promoted unchanged, exactly
// as the reference implementation carries forward an odd run.
func mergeRound(runs []run, level, fieldOffset int, sortID string, opts Options) ([]run, error) {
	next := make([]run, 0, (len(runs)+1)/2)

	i := 0
	for ; i+1 < len(runs); i += 2 {
		left, right := runs[i], runs[i+1]

		leftRecords, err := readRun(left.path, opts.Compress)
		if err != nil {
			return nil, err
		}
		rightRecords, err := readRun(right.path, opts.Compress)
		if err != nil {
			return nil, err
		}

		mergedRecords := mergePages(leftRecords, rightRecords, fieldOffset)
		mergedIDs := append(append([]string{}, left.ids...), right.ids...)
		mergedPath := filepath.Join(opts.WorkDir, fmt.Sprintf("%s_%s_%d", sortID, strings.Join(mergedIDs, "-"), level))

		if err := writeRun(mergedPath, mergedRecords, opts.Compress); err != nil {
			return nil, err
		}
		os.Remove(left.path)
		os.Remove(right.path)

		next = append(next, run{ids: mergedIDs, path: mergedPath})
	}

	if i < len(runs) {
		next = append(next, runs[i])
	}
	return next, nil
}

// mergePages lockstep-merges two already-sorted record slices, favouring
// the left side on ties.
func mergePages(left, right [][]byte, fieldOffset int) [][]byte {
	merged := make([][]byte, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if keyByte(left[i], fieldOffset) <= keyByte(right[j], fieldOffset) {
			merged = append(merged, left[i])
			i++
		} else {
			merged = append(merged, right[j])
			j++
		}
	}
	merged = append(merged, left[i:]...)
	merged = append(merged, right[j:]...)
	return merged
}

func keyByte(record []byte, offset int) byte {
	if offset < 0 || offset >= len(record) {
		return 0
	}
	return record[offset]
}
