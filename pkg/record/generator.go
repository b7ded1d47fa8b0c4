package record

import (
	"fmt"
	"math/rand"
)

// Generator produces synthetic rows for a schema, for tests and demo data
// only — never imported by pkg/page, pkg/pagedir, or pkg/heapfile.
type Generator struct {
	schema Schema
	rng    *rand.Rand
	nextID uint32
}

// NewGenerator builds a Generator seeded deterministically so repeated runs
// in tests produce the same rows.
func NewGenerator(schema Schema, seed int64) *Generator {
	return &Generator{schema: schema, rng: rand.New(rand.NewSource(seed)), nextID: 1}
}

// Next produces one synthetic row matching the generator's schema, with the
// first field (the key) assigned sequentially so rows never collide.
func (g *Generator) Next() []any {
	values := make([]any, len(g.schema))
	for i, f := range g.schema {
		if i == 0 && f.Type == Int {
			values[i] = g.nextID
			g.nextID++
			continue
		}
		values[i] = g.randomValue(f.Type)
	}
	return values
}

func (g *Generator) randomValue(t FieldType) any {
	switch t {
	case Int:
		return g.rng.Uint32()
	case Short:
		return uint16(g.rng.Intn(1 << 16))
	case Byte:
		return uint8(g.rng.Intn(1 << 8))
	case VarStr:
		return g.randomString(8 + g.rng.Intn(24))
	default:
		return nil
	}
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (g *Generator) randomString(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(buf)
}

// NextN produces n synthetic rows already encoded against the generator's
// schema.
func (g *Generator) NextN(n int) ([][]byte, error) {
	rows := make([][]byte, n)
	for i := 0; i < n; i++ {
		rec, err := Encode(g.Next(), g.schema)
		if err != nil {
			return nil, fmt.Errorf("record: generating row %d: %w", i, err)
		}
		rows[i] = rec
	}
	return rows, nil
}
