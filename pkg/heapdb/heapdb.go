// Package heapdb provides Controller, the thin façade wrapping a heap file
// and its external sort behind insert/update/read/delete/commit/sort verbs.
package heapdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"heapdb/pkg/config"
	"heapdb/pkg/extsort"
	"heapdb/pkg/heapfile"
	"heapdb/pkg/record"
)

// Controller owns a heap file and exposes the engine's caller-facing
// operations.
type Controller struct {
	hf  *heapfile.HeapFile
	cfg *config.Config
}

// Open creates or opens the heap file named by cfg's data directory. A nil
// cfg falls back to config.Default().
func Open(cfg *config.Config) (*Controller, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("heapdb: creating data directory %s: %w", cfg.DataDir, err)
	}

	path := filepath.Join(cfg.DataDir, "heap.db")
	hf, err := heapfile.Open(heapfile.Options{Path: path})
	if err != nil {
		return nil, fmt.Errorf("heapdb: opening heap file: %w", err)
	}
	return &Controller{hf: hf, cfg: cfg}, nil
}

// Insert encodes values per schema and appends it to the heap.
func (c *Controller) Insert(values []any, schema record.Schema) error {
	if err := schema.ValidatesAsKey(); err != nil {
		return err
	}
	rec, err := record.Encode(values, schema)
	if err != nil {
		return err
	}
	_, _, err = c.hf.Insert(rec)
	return err
}

// Update re-encodes values per schema and replaces the record currently
// keyed by id. values may carry a different key in its first field than
// id, in which case the stored record is rekeyed to values[0].
func (c *Controller) Update(id uint32, values []any, schema record.Schema) error {
	if err := schema.ValidatesAsKey(); err != nil {
		return err
	}
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], id)

	rec, err := record.Encode(values, schema)
	if err != nil {
		return err
	}
	return c.hf.Update(key, rec)
}

// Read decodes and returns the record with the given key.
func (c *Controller) Read(id uint32, schema record.Schema) ([]any, error) {
	if err := schema.ValidatesAsKey(); err != nil {
		return nil, err
	}
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], id)

	data, err := c.hf.Read(key)
	if err != nil {
		return nil, err
	}
	return record.Decode(data, schema)
}

// Delete removes the record with the given key.
func (c *Controller) Delete(id uint32, schema record.Schema) error {
	if err := schema.ValidatesAsKey(); err != nil {
		return err
	}
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], id)
	return c.hf.Delete(key)
}

// Commit flushes every resident directory and data page to disk.
func (c *Controller) Commit() error {
	return c.hf.Close()
}

// Sort runs the two-way external merge sort over the heap's pages, keyed
// on the byte at fieldOffset, and returns the path to the merged result
// file plus the number of records sorted.
func (c *Controller) Sort(fieldOffset int) (string, int, error) {
	pages := c.hf.Pages()
	opts := extsort.Options{WorkDir: c.cfg.Sort.WorkDir, Compress: c.cfg.Sort.Compress}
	return extsort.Sort(pages, fieldOffset, opts)
}

// InspectPage renders the footer and slot directory of the data page
// numbered number, for diagnostics.
func (c *Controller) InspectPage(number uint32) (string, error) {
	pg, err := c.hf.FindPage(number)
	if err != nil {
		return "", err
	}
	return pg.Dump(), nil
}

// SeedDemoData inserts n synthetic rows generated from schema, seeded
// deterministically so repeated calls with the same seed are reproducible.
// It exists to exercise the merge sort over more than a handful of rows
// without requiring a caller to hand-craft data.
func (c *Controller) SeedDemoData(n int, schema record.Schema, seed int64) (int, error) {
	gen := record.NewGenerator(schema, seed)
	rows, err := gen.NextN(n)
	if err != nil {
		return 0, err
	}
	for _, rec := range rows {
		if _, _, err := c.hf.Insert(rec); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
