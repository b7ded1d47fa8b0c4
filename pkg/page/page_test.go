package page

import (
	"bytes"
	"errors"
	"testing"
)

func record(key uint32, tail string) []byte {
	rec := make([]byte, 4+len(tail))
	rec[0] = byte(key)
	rec[1] = byte(key >> 8)
	rec[2] = byte(key >> 16)
	rec[3] = byte(key >> 24)
	copy(rec[4:], tail)
	return rec
}

func TestNewPageIsEmpty(t *testing.T) {
	p := New(1)
	if p.SlotCount() != 0 {
		t.Errorf("expected SlotCount = 0, got %d", p.SlotCount())
	}
	if got, want := p.FreeSpace(), Size-FooterWidth; got != want {
		t.Errorf("expected FreeSpace = %d, got %d", want, got)
	}
}

func TestInsertAndRead(t *testing.T) {
	p := New(1)
	rec := record(7, "hello")

	id, err := p.Insert(rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 0 {
		t.Errorf("expected slot 0, got %d", id)
	}
	if !p.IsDirty() {
		t.Error("page should be dirty after insert")
	}

	got, err := p.Read(id)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, rec) {
		t.Errorf("Read mismatch: want %v, got %v", rec, got)
	}
}

func TestInsertPageFull(t *testing.T) {
	p := New(1)
	big := make([]byte, MaxRecordSize+1)
	if _, err := p.Insert(big); !errors.Is(err, ErrPageFull) {
		t.Errorf("expected ErrPageFull, got %v", err)
	}
}

func TestDeleteTombstonesAndCompacts(t *testing.T) {
	p := New(1)
	a, _ := p.Insert(record(1, "aaa"))
	b, _ := p.Insert(record(2, "bbbbb"))

	if err := p.Delete(a); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got, err := p.Read(a); err != nil || len(got) != 0 {
		t.Errorf("expected empty read of tombstoned slot, got %v, %v", got, err)
	}

	got, err := p.Read(b)
	if err != nil {
		t.Fatalf("Read after compact failed: %v", err)
	}
	if !bytes.Equal(got, record(2, "bbbbb")) {
		t.Errorf("compact corrupted surviving record: got %v", got)
	}
}

func TestInsertReusesLastTombstone(t *testing.T) {
	p := New(1)
	p.Insert(record(1, "x"))
	b, _ := p.Insert(record(2, "y"))
	p.Insert(record(3, "z"))

	if err := p.Delete(b); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	newID, err := p.Insert(record(4, "w"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if newID != b {
		t.Errorf("expected reused slot %d, got %d", b, newID)
	}
}

func TestUpdateEqualLength(t *testing.T) {
	p := New(1)
	id, _ := p.Insert(record(1, "abc"))
	newID, err := p.Update(id, record(1, "xyz"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if newID != id {
		t.Errorf("equal-length update should keep slot id, got %d want %d", newID, id)
	}
	got, _ := p.Read(id)
	if !bytes.Equal(got, record(1, "xyz")) {
		t.Errorf("unexpected record after update: %v", got)
	}
}

func TestUpdateShorterCompacts(t *testing.T) {
	p := New(1)
	id, _ := p.Insert(record(1, "abcdef"))
	newID, err := p.Update(id, record(1, "ab"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if newID != id {
		t.Errorf("shorter update should keep slot id, got %d want %d", newID, id)
	}
	got, _ := p.Read(id)
	if !bytes.Equal(got, record(1, "ab")) {
		t.Errorf("unexpected record after shrink update: %v", got)
	}
}

func TestUpdateLongerMayRelocate(t *testing.T) {
	p := New(1)
	id, _ := p.Insert(record(1, "ab"))
	newID, err := p.Update(id, record(1, "abcdefgh"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := p.Read(newID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, record(1, "abcdefgh")) {
		t.Errorf("unexpected record after grow update: %v", got)
	}
}

func TestUpdateLongerNoRoom(t *testing.T) {
	p := New(1)
	id, _ := p.Insert(record(1, "a"))
	big := make([]byte, MaxRecordSize)
	copy(big, record(1, ""))
	if _, err := p.Update(id, big); !errors.Is(err, ErrNoRoomOnPage) {
		t.Errorf("expected ErrNoRoomOnPage, got %v", err)
	}
}

func TestFindByKey(t *testing.T) {
	p := New(1)
	p.Insert(record(10, "foo"))
	id2, _ := p.Insert(record(20, "bar"))
	p.Insert(record(30, "baz"))

	found, ok := p.Find([4]byte{20, 0, 0, 0})
	if !ok {
		t.Fatal("expected to find key 20")
	}
	if found != id2 {
		t.Errorf("expected slot %d, got %d", id2, found)
	}

	if _, ok := p.Find([4]byte{99, 0, 0, 0}); ok {
		t.Error("expected key 99 not to be found")
	}
}

func TestFindSkipsTombstones(t *testing.T) {
	p := New(1)
	id, _ := p.Insert(record(5, "x"))
	p.Delete(id)
	if _, ok := p.Find([4]byte{5, 0, 0, 0}); ok {
		t.Error("expected tombstoned key not to be found")
	}
}

func TestSortOrdersByField(t *testing.T) {
	p := New(1)
	p.Insert(record(3, ""))
	p.Insert(record(1, ""))
	p.Insert(record(2, ""))

	sorted := p.Sort(0)
	if len(sorted) != 3 {
		t.Fatalf("expected 3 records, got %d", len(sorted))
	}
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i][0] > sorted[i+1][0] {
			t.Errorf("records not sorted: %v", sorted)
		}
	}
}

func TestLoadRoundTrip(t *testing.T) {
	p := New(42)
	p.Insert(record(1, "roundtrip"))

	loaded, err := Load(42, p.Bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := loaded.Read(0)
	if err != nil {
		t.Fatalf("Read after load failed: %v", err)
	}
	if !bytes.Equal(got, record(1, "roundtrip")) {
		t.Errorf("roundtrip mismatch: %v", got)
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	if _, err := Load(1, make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-sized page image")
	}
}

func TestInvalidSlot(t *testing.T) {
	p := New(1)
	if _, err := p.Read(0); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestDump(t *testing.T) {
	p := New(1)
	p.Insert(record(1, "abc"))
	out := p.Dump()
	if len(out) == 0 {
		t.Error("expected non-empty dump")
	}
}
