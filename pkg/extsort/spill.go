package extsort

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// runData is the gob-encoded payload of one spill file: an ordered slice
// of raw record byte strings.
type runData struct {
	Records [][]byte
}

func writeRun(path string, records [][]byte, compress bool) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(runData{Records: records}); err != nil {
		return fmt.Errorf("extsort: encoding run %s: %w", path, err)
	}

	payload := buf.Bytes()
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("extsort: creating zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
	}

	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("extsort: writing run %s: %w", path, err)
	}
	return nil
}

// ReadResult loads a finished sort's final output file, in the same
// gob(+zstd) format every intermediate spill uses.
func ReadResult(path string, compress bool) ([][]byte, error) {
	return readRun(path, compress)
}

func readRun(path string, compress bool) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extsort: reading run %s: %w", path, err)
	}

	if compress {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("extsort: creating zstd decoder: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("extsort: decompressing run %s: %w", path, err)
		}
	}

	var rd runData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rd); err != nil {
		return nil, fmt.Errorf("extsort: decoding run %s: %w", path, err)
	}
	return rd.Records, nil
}
