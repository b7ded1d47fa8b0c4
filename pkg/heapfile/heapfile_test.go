package heapfile

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
)

func record(key byte, tail string) []byte {
	rec := make([]byte, 4+len(tail))
	rec[0] = key
	copy(rec[4:], tail)
	return rec
}

func openTemp(t *testing.T) *HeapFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.db")
	hf, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return hf
}

func TestInsertAndRead(t *testing.T) {
	hf := openTemp(t)
	if _, _, err := hf.Insert(record(1, "hello")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := hf.Read([4]byte{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, record(1, "hello")) {
		t.Errorf("unexpected record: %v", got)
	}
}

func TestReadMissingKey(t *testing.T) {
	hf := openTemp(t)
	if _, err := hf.Read([4]byte{99, 0, 0, 0}); err != ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestReopenAfterCloseRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")

	hf, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, _, err := hf.Insert(record(5, "persisted")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := hf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Read([4]byte{5, 0, 0, 0})
	if err != nil {
		t.Fatalf("Read after reopen failed: %v", err)
	}
	if !bytes.Equal(got, record(5, "persisted")) {
		t.Errorf("unexpected record after reopen: %v", got)
	}
}

func recordWithKey(key uint32, tail string) []byte {
	rec := make([]byte, 4+len(tail))
	binary.LittleEndian.PutUint32(rec[0:4], key)
	copy(rec[4:], tail)
	return rec
}

// A 4096-byte directory page holds 408 (data_page, free_space) entries
// (6-byte metadata slot + 408 six-byte entries, each behind its own 4-byte
// slot). Each 48-byte record here takes 52 bytes of page space, so a
// 4096-byte data page holds 78 of them. Exhausting the root directory's
// own entry capacity therefore needs upwards of 408*78 = 31824 records.
func TestBulkInsertExtendsDirectoryChain(t *testing.T) {
	hf := openTemp(t)
	const n = 32000
	const tail = "row-data-to-force-many-pages-and-directories"
	for i := 0; i < n; i++ {
		rec := recordWithKey(uint32(i), tail)
		if _, _, err := hf.Insert(rec); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}
	if stats := hf.Stats(); stats.DirectoryCount < 2 {
		t.Errorf("expected bulk insert to extend the directory chain, got %d directories", stats.DirectoryCount)
	}

	for i := 0; i < n; i++ {
		var key [4]byte
		binary.LittleEndian.PutUint32(key[:], uint32(i))
		got, err := hf.Read(key)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if want := recordWithKey(uint32(i), tail); !bytes.Equal(got, want) {
			t.Errorf("record %d: got %v, want %v", i, got, want)
		}
	}
}

func TestUpdateLongerRelocates(t *testing.T) {
	hf := openTemp(t)
	if _, _, err := hf.Insert(record(2, "ab")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := hf.Update([4]byte{2, 0, 0, 0}, record(2, "a much longer replacement value")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := hf.Read([4]byte{2, 0, 0, 0})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, record(2, "a much longer replacement value")) {
		t.Errorf("unexpected record after update: %v", got)
	}
}

func TestDeleteThenReinsert(t *testing.T) {
	hf := openTemp(t)
	if _, _, err := hf.Insert(record(3, "first")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := hf.Delete([4]byte{3, 0, 0, 0}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := hf.Read([4]byte{3, 0, 0, 0}); err != ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}

	if _, _, err := hf.Insert(record(3, "second")); err != nil {
		t.Fatalf("reinsert failed: %v", err)
	}
	got, err := hf.Read([4]byte{3, 0, 0, 0})
	if err != nil {
		t.Fatalf("Read after reinsert failed: %v", err)
	}
	if !bytes.Equal(got, record(3, "second")) {
		t.Errorf("unexpected record after reinsert: %v", got)
	}
}

func TestPagesTraversal(t *testing.T) {
	hf := openTemp(t)
	for i := byte(0); i < 5; i++ {
		if _, _, err := hf.Insert(record(i, "x")); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	pages := hf.Pages()
	if len(pages) == 0 {
		t.Fatal("expected at least one page")
	}
	for _, pg := range pages {
		if pg.SlotCount() == 0 {
			t.Errorf("page %d unexpectedly empty", pg.Number)
		}
	}
}
