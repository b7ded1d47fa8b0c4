// Package heapfile owns the backing file for a heap: the page-directory
// chain, each directory's resident data-page cache, and commit-on-close
// persistence.
package heapfile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"heapdb/pkg/page"
	"heapdb/pkg/pagedir"
)

// ErrKeyNotFound is returned by Read, Update, and Delete when no record in
// the heap matches the requested key.
var ErrKeyNotFound = errors.New("heapfile: key not found")

// Options configures how a heap file is opened.
type Options struct {
	// Path is the backing file's path on disk. It is created if absent.
	Path string
}

// HeapFile is a single-file, single-writer heap: a chain of page
// directories, each owning a set of data pages cached in memory once
// touched.
type HeapFile struct {
	mu          sync.Mutex
	path        string
	directories []*pagedir.Directory
}

// Open opens an existing heap file or creates a new, empty one.
func Open(opts Options) (*HeapFile, error) {
	hf := &HeapFile{path: opts.Path}

	info, err := os.Stat(opts.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("heapfile: stat %s: %w", opts.Path, err)
		}
		hf.directories = []*pagedir.Directory{pagedir.NewRoot(hf)}
		return hf, nil
	}
	if info.Size() == 0 {
		hf.directories = []*pagedir.Directory{pagedir.NewRoot(hf)}
		return hf, nil
	}

	rootData, err := hf.readPageBytes(0)
	if err != nil {
		return nil, err
	}
	root, err := pagedir.Load(0, rootData, hf)
	if err != nil {
		return nil, fmt.Errorf("heapfile: loading root directory: %w", err)
	}
	hf.directories = []*pagedir.Directory{root}
	if err := hf.chainDirectories(); err != nil {
		return nil, err
	}
	return hf, nil
}

// chainDirectories walks next_dir pointers, loading every directory
// reachable from the root that is not already resident.
func (hf *HeapFile) chainDirectories() error {
	for {
		last := hf.directories[len(hf.directories)-1]
		next := last.NextDir()
		if next == 0 {
			return nil
		}
		data, err := hf.readPageBytes(next)
		if err != nil {
			return fmt.Errorf("heapfile: loading directory %d: %w", next, err)
		}
		dir, err := pagedir.Load(next, data, hf)
		if err != nil {
			return fmt.Errorf("heapfile: parsing directory %d: %w", next, err)
		}
		hf.directories = append(hf.directories, dir)
	}
}

// LoadPage implements pagedir.PageLoader: it reads a single data page's
// image from disk, opening the file only for the duration of this call.
func (hf *HeapFile) LoadPage(number uint32) (*page.Page, error) {
	data, err := hf.readPageBytes(number)
	if err != nil {
		return nil, err
	}
	return page.Load(number, data)
}

func (hf *HeapFile) readPageBytes(number uint32) ([]byte, error) {
	f, err := os.Open(hf.path)
	if err != nil {
		return nil, fmt.Errorf("heapfile: opening %s: %w", hf.path, err)
	}
	defer f.Close()

	buf := make([]byte, page.Size)
	if _, err := f.ReadAt(buf, int64(number)*page.Size); err != nil {
		return nil, fmt.Errorf("heapfile: reading page %d: %w", number, err)
	}
	return buf, nil
}

// Insert places record in the first directory with room, extending the
// directory chain with a fresh directory page when every existing one is
// full.
func (hf *HeapFile) Insert(record []byte) (pageNumber uint32, slot page.SlotID, err error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.insertLocked(record)
}

func (hf *HeapFile) insertLocked(record []byte) (uint32, page.SlotID, error) {
	for _, d := range hf.directories {
		pn, sid, err := d.Insert(record)
		if err == nil {
			return pn, sid, nil
		}
		if !errors.Is(err, pagedir.ErrDirectoryFull) {
			return 0, 0, err
		}
	}

	last := hf.directories[len(hf.directories)-1]
	newDirNumber := last.MaxPageNumber() + 1
	newDir := pagedir.NewChained(newDirNumber, hf)
	last.SetNextDir(newDirNumber)
	hf.directories = append(hf.directories, newDir)

	return newDir.Insert(record)
}

// FindRecord scans every directory in the chain for a record matching key.
func (hf *HeapFile) FindRecord(key [4]byte) (*page.Page, page.SlotID, bool, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.findRecordLocked(key)
}

func (hf *HeapFile) findRecordLocked(key [4]byte) (*page.Page, page.SlotID, bool, error) {
	for _, d := range hf.directories {
		pg, sid, ok, err := d.FindRecord(key)
		if err != nil {
			return nil, 0, false, err
		}
		if ok {
			return pg, sid, true, nil
		}
	}
	return nil, 0, false, nil
}

// Read returns a copy of the record stored under key.
func (hf *HeapFile) Read(key [4]byte) ([]byte, error) {
	pg, sid, ok, err := hf.FindRecord(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	return pg.Read(sid)
}

// Update rewrites the record stored under key. If the new record no longer
// fits on its current page, the old record is deleted and the new one is
// reinserted fresh, which may relocate it to a different page entirely.
func (hf *HeapFile) Update(key [4]byte, newRecord []byte) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	for _, d := range hf.directories {
		_, _, ok, err := d.FindRecord(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		err = d.UpdateRecord(key, newRecord)
		if err == nil {
			return nil
		}
		if !errors.Is(err, page.ErrNoRoomOnPage) {
			return err
		}

		// page.Update has already tombstoned the old record before reporting
		// ErrNoRoomOnPage, so only the reinsert remains.
		_, _, ierr := hf.insertLocked(newRecord)
		return ierr
	}
	return ErrKeyNotFound
}

// Delete tombstones the record stored under key.
func (hf *HeapFile) Delete(key [4]byte) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	for _, d := range hf.directories {
		_, _, ok, err := d.FindRecord(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		return d.DeleteRecord(key)
	}
	return ErrKeyNotFound
}

// FindPage returns the data page with the given number, searching every
// directory in the chain.
func (hf *HeapFile) FindPage(number uint32) (*page.Page, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.findPageLocked(number)
}

func (hf *HeapFile) findPageLocked(number uint32) (*page.Page, error) {
	for _, d := range hf.directories {
		pg, ok, err := d.FindPage(number)
		if err != nil {
			return nil, err
		}
		if ok {
			return pg, nil
		}
	}
	return nil, pagedir.ErrPageNotFound
}

// Pages returns every data page reachable by number starting at 1, in
// ascending order, stopping at the first number with no page — the
// traversal the external merge sort scans over.
func (hf *HeapFile) Pages() []*page.Page {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	var pages []*page.Page
	for number := uint32(1); ; number++ {
		pg, err := hf.findPageLocked(number)
		if err != nil {
			break
		}
		pages = append(pages, pg)
	}
	return pages
}

// Close writes every resident directory and data page to the backing file
// and closes it. It is the only operation that holds the file open for
// longer than a single read or write.
func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	f, err := os.OpenFile(hf.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("heapfile: opening %s for close: %w", hf.path, err)
	}
	defer f.Close()

	for _, d := range hf.directories {
		if _, err := f.WriteAt(d.Bytes(), int64(d.Number())*page.Size); err != nil {
			return fmt.Errorf("heapfile: writing directory %d: %w", d.Number(), err)
		}
		for number, pg := range d.ResidentPages() {
			if _, err := f.WriteAt(pg.Bytes(), int64(number)*page.Size); err != nil {
				return fmt.Errorf("heapfile: writing page %d: %w", number, err)
			}
		}
	}
	return nil
}

// Stats summarises directory and cache counts for diagnostics.
type Stats struct {
	DirectoryCount    int
	ResidentPageCount int
}

// Stats reports aggregate directory and cache counters.
func (hf *HeapFile) Stats() Stats {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	s := Stats{DirectoryCount: len(hf.directories)}
	for _, d := range hf.directories {
		s.ResidentPageCount += len(d.ResidentPages())
	}
	return s
}
