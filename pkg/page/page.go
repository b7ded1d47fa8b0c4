// Package page implements the fixed-size slotted page: the on-disk unit of
// storage for both the heap file's data pages and the page directory. A
// page is exactly Size bytes; there is no header region outside the footer
// described below.
package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Size is the fixed page size. 4096 is the canonical value (spec.md §9
	// open question: the source varied between 512 and 4096; 4096 wins).
	Size = 4096

	// FooterWidth is the width, in bytes, of the trailing free_space_pointer
	// and slot_count fields (2 bytes each).
	FooterWidth = 4

	// SlotSize is the width, in bytes, of one slot directory entry
	// (offset:2, length:2 LE).
	SlotSize = 4

	// MaxRecordSize is the largest record an empty page can ever admit.
	MaxRecordSize = Size - FooterWidth - SlotSize
)

var (
	// ErrPageFull is returned by Insert when a record does not fit.
	ErrPageFull = errors.New("page: not enough free space")

	// ErrNoRoomOnPage is returned by Update when, after relocating a record
	// that grew, the page still cannot admit the new size. The caller must
	// find or create a different page.
	ErrNoRoomOnPage = errors.New("page: record does not fit after relocation")

	// ErrCorruptPage is returned when a decoded footer is out of bounds.
	ErrCorruptPage = errors.New("page: corrupt footer")

	// ErrSlotDeleted is returned by operations that require a live slot.
	ErrSlotDeleted = errors.New("page: slot is a tombstone")

	// ErrInvalidSlot is returned when a slot id is out of range.
	ErrInvalidSlot = errors.New("page: slot id out of range")
)

// SlotID addresses one entry in a page's slot directory.
type SlotID uint16

type slot struct {
	offset uint16
	length uint16 // 0 marks a tombstone
}

func (s slot) isTombstone() bool { return s.length == 0 }

// Page is a fixed Size-byte block: packed records grow up from offset 0,
// the slot directory grows down from the footer, and the footer occupies
// the last FooterWidth bytes (slot_count then free_space_pointer, LE).
type Page struct {
	Number           uint32
	data             []byte
	slots            []slot
	freeSpacePointer uint16
	dirty            bool
}

// New creates an empty page for the given page number.
func New(number uint32) *Page {
	p := &Page{Number: number, data: make([]byte, Size)}
	p.syncFooter()
	return p
}

// Load parses an existing Size-byte page image.
func Load(number uint32, data []byte) (*Page, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("page: invalid page size: want %d, got %d", Size, len(data))
	}
	p := &Page{Number: number, data: append([]byte(nil), data...)}
	if err := p.parseFooter(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) parseFooter() error {
	n := len(p.data)
	slotCount := binary.LittleEndian.Uint16(p.data[n-FooterWidth : n-2])
	freeSpacePointer := binary.LittleEndian.Uint16(p.data[n-2:])

	if int(freeSpacePointer) > n-FooterWidth-SlotSize*int(slotCount) {
		return fmt.Errorf("%w: free_space_pointer=%d slot_count=%d", ErrCorruptPage, freeSpacePointer, slotCount)
	}

	slots := make([]slot, slotCount)
	for i := 0; i < int(slotCount); i++ {
		off := n - FooterWidth - (i+1)*SlotSize
		if off < 0 {
			return fmt.Errorf("%w: slot directory overruns page for slot %d", ErrCorruptPage, i)
		}
		slots[i] = slot{
			offset: binary.LittleEndian.Uint16(p.data[off : off+2]),
			length: binary.LittleEndian.Uint16(p.data[off+2 : off+4]),
		}
	}

	p.slots = slots
	p.freeSpacePointer = freeSpacePointer
	return nil
}

// syncFooter rewrites slot_count and free_space_pointer into the page
// image. Callers that mutate p.slots must also write the affected slot
// entries themselves via writeSlot before calling syncFooter.
func (p *Page) syncFooter() {
	n := len(p.data)
	binary.LittleEndian.PutUint16(p.data[n-FooterWidth:n-2], uint16(len(p.slots)))
	binary.LittleEndian.PutUint16(p.data[n-2:], p.freeSpacePointer)
}

func (p *Page) slotOffset(id SlotID) int {
	return len(p.data) - FooterWidth - (int(id)+1)*SlotSize
}

func (p *Page) writeSlot(id SlotID, s slot) {
	off := p.slotOffset(id)
	binary.LittleEndian.PutUint16(p.data[off:off+2], s.offset)
	binary.LittleEndian.PutUint16(p.data[off+2:off+4], s.length)
}

// FreeSpace returns the number of bytes available to a new record, after
// accounting for the slot it would need and the fixed footer words.
func (p *Page) FreeSpace() int {
	return Size - int(p.freeSpacePointer) - SlotSize*len(p.slots) - FooterWidth
}

// SlotCount returns the number of entries in the slot directory, including
// tombstones.
func (p *Page) SlotCount() int {
	return len(p.slots)
}

// MarkDirty flags the page as modified since it was last written to disk.
func (p *Page) MarkDirty() {
	p.dirty = true
}

// IsDirty reports whether the page has unwritten changes.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// Bytes returns the raw Size-byte page image, ready to write to disk.
func (p *Page) Bytes() []byte {
	return p.data
}

// Stats summarises a page for diagnostics.
type Stats struct {
	SlotCount        int
	ActiveSlots      int
	TombstoneSlots   int
	FreeSpacePointer int
	FreeSpace        int
}

// Stats reports slot and free-space counters.
func (p *Page) Stats() Stats {
	s := Stats{
		SlotCount:        len(p.slots),
		FreeSpacePointer: int(p.freeSpacePointer),
		FreeSpace:        p.FreeSpace(),
	}
	for _, sl := range p.slots {
		if sl.isTombstone() {
			s.TombstoneSlots++
		} else {
			s.ActiveSlots++
		}
	}
	return s
}

// Dump renders a page's footer and slot directory for debugging.
func (p *Page) Dump() string {
	s := p.Stats()
	out := fmt.Sprintf("page %d: slots=%d active=%d tombstones=%d free_space_pointer=%d free_space=%d\n",
		p.Number, s.SlotCount, s.ActiveSlots, s.TombstoneSlots, s.FreeSpacePointer, s.FreeSpace)
	for i, sl := range p.slots {
		if sl.isTombstone() {
			out += fmt.Sprintf("  slot %d: deleted\n", i)
			continue
		}
		out += fmt.Sprintf("  slot %d: offset=%d length=%d\n", i, sl.offset, sl.length)
	}
	return out
}
