// Package pagedir implements the page directory: a specialised page that
// indexes a heap file's data pages by free space and chains to the next
// directory page once full.
package pagedir

import (
	"errors"
	"fmt"

	"heapdb/pkg/page"
)

var (
	// ErrDirectoryFull is returned when a directory page has no room left
	// for a new entry and cannot allocate one.
	ErrDirectoryFull = errors.New("pagedir: directory page is full")

	// ErrPageNotFound is returned when a record's key cannot be located in
	// any data page tracked by a directory.
	ErrPageNotFound = errors.New("pagedir: record not found in directory")
)

// PageLoader reads a data page's on-disk image by page number. HeapFile
// implements this to give a Directory scoped, per-call file access.
type PageLoader interface {
	LoadPage(number uint32) (*page.Page, error)
}

// entry is one (data_page_number, free_space) pair tracked in slots 1..N-1
// of the directory page.
type entry struct {
	dataPage  uint32
	freeSpace uint32
	slot      page.SlotID
}

// Directory is slot 0 holding (pd_number, next_dir) metadata, followed by
// entries indexing the data pages it owns.
type Directory struct {
	pg       *page.Page
	loader   PageLoader
	cache    *pageCache
	pdNumber uint32
	nextDir  uint32
}

// NewRoot creates the first directory in a heap file's chain, at page 0.
func NewRoot(loader PageLoader) *Directory {
	return newDirectory(0, loader)
}

// NewChained creates a directory extending an existing chain, at the given
// page number.
func NewChained(number uint32, loader PageLoader) *Directory {
	return newDirectory(number, loader)
}

func newDirectory(number uint32, loader PageLoader) *Directory {
	d := &Directory{pg: page.New(number), loader: loader, cache: newPageCache(), pdNumber: number}
	d.writeMetadata()
	return d
}

// Load parses an existing directory page image.
func Load(number uint32, data []byte, loader PageLoader) (*Directory, error) {
	pg, err := page.Load(number, data)
	if err != nil {
		return nil, err
	}
	d := &Directory{pg: pg, loader: loader, cache: newPageCache()}
	if err := d.readMetadata(); err != nil {
		return nil, err
	}
	return d, nil
}

func encode3(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

func decode3(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (d *Directory) metadataRecord() []byte {
	rec := make([]byte, 0, 6)
	rec = append(rec, encode3(d.pdNumber)...)
	rec = append(rec, encode3(d.nextDir)...)
	return rec
}

func (d *Directory) writeMetadata() {
	rec := d.metadataRecord()
	if d.pg.SlotCount() == 0 {
		d.pg.Insert(rec)
		return
	}
	d.pg.Update(0, rec)
}

func (d *Directory) readMetadata() error {
	rec, err := d.pg.Read(0)
	if err != nil {
		return fmt.Errorf("pagedir: reading metadata slot: %w", err)
	}
	if len(rec) < 6 {
		return fmt.Errorf("pagedir: metadata slot too short: %d bytes", len(rec))
	}
	d.pdNumber = decode3(rec[0:3])
	d.nextDir = decode3(rec[3:6])
	return nil
}

func (d *Directory) entries() []entry {
	var es []entry
	for i := 1; i < d.pg.SlotCount(); i++ {
		rec, err := d.pg.Read(page.SlotID(i))
		if err != nil || len(rec) == 0 {
			continue
		}
		es = append(es, entry{
			dataPage:  decode3(rec[0:3]),
			freeSpace: decode3(rec[3:6]),
			slot:      page.SlotID(i),
		})
	}
	return es
}

func (d *Directory) updateFreeSpace(slot page.SlotID, dataPage, freeSpace uint32) {
	rec := make([]byte, 0, 6)
	rec = append(rec, encode3(dataPage)...)
	rec = append(rec, encode3(freeSpace)...)
	d.pg.Update(slot, rec)
}

func (d *Directory) loadDataPage(number uint32) (*page.Page, error) {
	if pg, ok := d.cache.get(number); ok {
		return pg, nil
	}
	pg, err := d.loader.LoadPage(number)
	if err != nil {
		return nil, fmt.Errorf("pagedir: loading data page %d: %w", number, err)
	}
	d.cache.put(number, pg)
	return pg, nil
}

// MaxPageNumber returns the highest page number known to this directory,
// counting both its own number and every data page it tracks — the basis
// for allocating the next data page or chained directory page number.
func (d *Directory) MaxPageNumber() uint32 {
	max := d.pdNumber
	for _, e := range d.entries() {
		if e.dataPage > max {
			max = e.dataPage
		}
	}
	return max
}

// findOrCreate locates the first entry whose tracked free space can hold a
// record of the given size — the entry that *matched*, not the directory's
// last entry — loading its data page. If no entry matches, it allocates a
// new data page and a new entry for it.
func (d *Directory) findOrCreate(needed int) (*page.Page, entry, error) {
	for _, e := range d.entries() {
		if int(e.freeSpace) >= needed {
			pg, err := d.loadDataPage(e.dataPage)
			if err != nil {
				return nil, entry{}, err
			}
			return pg, e, nil
		}
	}

	newNumber := d.MaxPageNumber() + 1
	newPage := page.New(newNumber)
	rec := make([]byte, 0, 6)
	rec = append(rec, encode3(newNumber)...)
	rec = append(rec, encode3(uint32(newPage.FreeSpace()))...)

	slot, err := d.pg.Insert(rec)
	if err != nil {
		return nil, entry{}, fmt.Errorf("%w: %w", ErrDirectoryFull, err)
	}
	d.cache.put(newNumber, newPage)
	return newPage, entry{dataPage: newNumber, freeSpace: uint32(newPage.FreeSpace()), slot: slot}, nil
}

// Insert places a record on whichever data page has room, extending this
// directory's own data-page set if none does. It never extends the
// directory chain itself — HeapFile does that when Insert returns
// ErrDirectoryFull.
func (d *Directory) Insert(record []byte) (pageNumber uint32, slot page.SlotID, err error) {
	dpg, e, err := d.findOrCreate(len(record) + page.SlotSize)
	if err != nil {
		return 0, 0, err
	}
	sid, err := dpg.Insert(record)
	if err != nil {
		return 0, 0, fmt.Errorf("pagedir: insert into matched page %d: %w", e.dataPage, err)
	}
	d.updateFreeSpace(e.slot, e.dataPage, uint32(dpg.FreeSpace()))
	return e.dataPage, sid, nil
}

// FindPage returns the data page with the given number if this directory
// tracks it.
func (d *Directory) FindPage(number uint32) (*page.Page, bool, error) {
	for _, e := range d.entries() {
		if e.dataPage == number {
			pg, err := d.loadDataPage(number)
			return pg, true, err
		}
	}
	return nil, false, nil
}

// FindRecord scans every data page this directory tracks for a record
// matching key, comparing only the record's first four bytes.
func (d *Directory) FindRecord(key [4]byte) (*page.Page, page.SlotID, bool, error) {
	for _, e := range d.entries() {
		pg, err := d.loadDataPage(e.dataPage)
		if err != nil {
			return nil, 0, false, err
		}
		if sid, ok := pg.Find(key); ok {
			return pg, sid, true, nil
		}
	}
	return nil, 0, false, nil
}

// UpdateRecord finds the record with the given key and rewrites it in
// place. A page.ErrNoRoomOnPage from a grown record is returned unwrapped
// so the caller (HeapFile) can relocate the record to a different page.
func (d *Directory) UpdateRecord(key [4]byte, newRecord []byte) error {
	pg, sid, ok, err := d.FindRecord(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPageNotFound
	}
	if _, err := pg.Update(sid, newRecord); err != nil {
		return err
	}
	d.refreshFreeSpace(pg)
	return nil
}

// DeleteRecord finds the record with the given key and tombstones it.
func (d *Directory) DeleteRecord(key [4]byte) error {
	pg, sid, ok, err := d.FindRecord(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPageNotFound
	}
	if err := pg.Delete(sid); err != nil {
		return err
	}
	d.refreshFreeSpace(pg)
	return nil
}

func (d *Directory) refreshFreeSpace(pg *page.Page) {
	for _, e := range d.entries() {
		if e.dataPage == pg.Number {
			d.updateFreeSpace(e.slot, e.dataPage, uint32(pg.FreeSpace()))
			return
		}
	}
}

// ResidentPages returns every data page currently held in this directory's
// cache, keyed by page number.
func (d *Directory) ResidentPages() map[uint32]*page.Page {
	return d.cache.all()
}

// Bytes returns the directory's own page image, ready to write to disk.
func (d *Directory) Bytes() []byte {
	return d.pg.Bytes()
}

// Number returns this directory's own page number.
func (d *Directory) Number() uint32 {
	return d.pdNumber
}

// NextDir returns the page number of the next directory in the chain, or 0
// if this is the last one.
func (d *Directory) NextDir() uint32 {
	return d.nextDir
}

// SetNextDir links this directory to the next one in the chain.
func (d *Directory) SetNextDir(number uint32) {
	d.nextDir = number
	d.writeMetadata()
}

// IsFull reports whether this directory has no room left for another
// entry, meaning a new data page could not be registered here.
func (d *Directory) IsFull() bool {
	return d.pg.FreeSpace() < 6+page.SlotSize
}
