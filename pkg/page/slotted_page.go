package page

import (
	"bytes"
	"fmt"
	"sort"
)

// Insert places a record on the page, reusing the last tombstone found by a
// left-to-right scan when one exists, and appending a new slot otherwise.
// It returns ErrPageFull if the record plus its slot entry do not fit.
func (p *Page) Insert(record []byte) (SlotID, error) {
	if len(record)+SlotSize > p.FreeSpace() {
		return 0, ErrPageFull
	}

	id, reuse := p.lastTombstone()
	newSlot := slot{offset: p.freeSpacePointer, length: uint16(len(record))}

	copy(p.data[p.freeSpacePointer:], record)
	p.freeSpacePointer += uint16(len(record))

	if reuse {
		p.slots[id] = newSlot
	} else {
		id = SlotID(len(p.slots))
		p.slots = append(p.slots, newSlot)
	}

	p.writeSlot(id, newSlot)
	p.syncFooter()
	p.MarkDirty()
	return id, nil
}

// lastTombstone scans the slot directory left to right and reports the last
// tombstone slot found, if any.
func (p *Page) lastTombstone() (id SlotID, found bool) {
	for i, s := range p.slots {
		if s.isTombstone() {
			id, found = SlotID(i), true
		}
	}
	return id, found
}

// Read returns a copy of the record stored at id. A tombstoned slot yields
// an empty, non-nil slice rather than an error.
func (p *Page) Read(id SlotID) ([]byte, error) {
	s, err := p.slotAt(id)
	if err != nil {
		return nil, err
	}
	if s.isTombstone() {
		return []byte{}, nil
	}
	out := make([]byte, s.length)
	copy(out, p.data[s.offset:s.offset+s.length])
	return out, nil
}

func (p *Page) slotAt(id SlotID) (slot, error) {
	if int(id) < 0 || int(id) >= len(p.slots) {
		return slot{}, ErrInvalidSlot
	}
	return p.slots[id], nil
}

// Delete tombstones the slot at id and eagerly compacts the page.
func (p *Page) Delete(id SlotID) error {
	s, err := p.slotAt(id)
	if err != nil {
		return err
	}
	if s.isTombstone() {
		return ErrSlotDeleted
	}
	s.length = 0
	p.slots[id] = s
	p.writeSlot(id, s)
	p.MarkDirty()
	return p.Compact()
}

// Update replaces the record at id. Equal-length records are overwritten in
// place; shorter records are overwritten and the page is compacted;
// records that grow are deleted and reinserted, which may relocate them to
// a new slot on the same page, or fail with ErrNoRoomOnPage if the page
// cannot accommodate the larger record even after reclaiming the old slot
// — the caller must then find or create a different page.
func (p *Page) Update(id SlotID, record []byte) (SlotID, error) {
	s, err := p.slotAt(id)
	if err != nil {
		return 0, err
	}
	if s.isTombstone() {
		return 0, ErrSlotDeleted
	}

	switch {
	case uint16(len(record)) == s.length:
		copy(p.data[s.offset:s.offset+s.length], record)
		p.MarkDirty()
		return id, nil

	case uint16(len(record)) < s.length:
		copy(p.data[s.offset:], record)
		s.length = uint16(len(record))
		p.slots[id] = s
		p.writeSlot(id, s)
		p.MarkDirty()
		if err := p.Compact(); err != nil {
			return 0, err
		}
		return id, nil

	default:
		if err := p.Delete(id); err != nil {
			return 0, err
		}
		newID, err := p.Insert(record)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNoRoomOnPage, err)
		}
		return newID, nil
	}
}

// Find scans the page's live slots for a record whose first four bytes
// equal key, returning its slot id.
func (p *Page) Find(key [4]byte) (SlotID, bool) {
	for i, s := range p.slots {
		if s.isTombstone() || s.length < 4 {
			continue
		}
		if bytes.Equal(p.data[s.offset:s.offset+4], key[:]) {
			return SlotID(i), true
		}
	}
	return 0, false
}

// Sort returns copies of every live record on the page ordered by the byte
// at fieldOffset within the record, breaking ties by the record's leading
// bytes so the ordering is fully deterministic.
func (p *Page) Sort(fieldOffset int) [][]byte {
	records := make([][]byte, 0, len(p.slots))
	for _, s := range p.slots {
		if s.isTombstone() {
			continue
		}
		rec := make([]byte, s.length)
		copy(rec, p.data[s.offset:s.offset+s.length])
		records = append(records, rec)
	}

	less := func(i, j int) bool {
		a, b := records[i], records[j]
		ak, bk := fieldByte(a, fieldOffset), fieldByte(b, fieldOffset)
		if ak != bk {
			return ak < bk
		}
		return bytes.Compare(a, b) < 0
	}

	sort.SliceStable(records, less)
	return records
}

func fieldByte(record []byte, offset int) byte {
	if offset < 0 || offset >= len(record) {
		return 0
	}
	return record[offset]
}

// Compact eagerly left-packs every live record, in slot-directory order,
// down to offset 0 and updates the free space pointer accordingly.
func (p *Page) Compact() error {
	writePtr := uint16(0)
	tmp := make([]byte, 0, p.freeSpacePointer)

	for i, s := range p.slots {
		if s.isTombstone() {
			continue
		}
		rec := p.data[s.offset : s.offset+s.length]
		newOffset := writePtr
		tmp = append(tmp, rec...)
		writePtr += s.length

		s.offset = newOffset
		p.slots[i] = s
		p.writeSlot(SlotID(i), s)
	}

	copy(p.data, tmp)
	p.freeSpacePointer = writePtr
	p.syncFooter()
	p.MarkDirty()
	return nil
}
