package wrap

import (
	"errors"
	"testing"
)

func TestModulus_Sub(t *testing.T) {
	type testRow struct {
		M      Modulus
		Newer  uint64
		Older  uint64
		Expect uint64
	}

	testData := [...]testRow{
		{Counter16, 10, 0, 10},
		{Counter16, 0, 0, 0},
		{Counter16, 65535, 65530, 5},
		{Counter16, 3, 65533, 6},
		{Counter16, 0, 65535, 1},
		{Counter16, 65536 + 3, 65533, 6},
		{Clock32, 1001, 0, 1001},
		{Clock32, 499, 4294967296 - 501, 1000},
		{MustNew(4), 1, 14, 3},
		{MustNew(4), 15, 0, 15},
		{MustNew(1), 0, 1, 1},
	}

	for index, row := range testData {
		actual := row.M.Sub(row.Newer, row.Older)
		if actual != row.Expect {
			t.Errorf("[%d]: %v.Sub(%d, %d): expected %d, got %d", index, row.M, row.Newer, row.Older, row.Expect, actual)
		}
	}
}

func TestModulus_SubInvariantUnderRelabel(t *testing.T) {
	m := Counter16
	const delta = 37
	for base := uint64(0); base < m.Value(); base += 997 {
		newer := m.Add(base, delta)
		if actual := m.Sub(newer, base); actual != delta {
			t.Errorf("base %d: expected %d, got %d", base, delta, actual)
		}
	}
}

func TestModulus_Basics(t *testing.T) {
	if Counter16.Value() != 65536 {
		t.Errorf("Counter16.Value: expected 65536, got %d", Counter16.Value())
	}
	if Clock32.Max() != 4294967295 {
		t.Errorf("Clock32.Max: expected 4294967295, got %d", Clock32.Max())
	}
	if actual := Counter16.Reduce(65537); actual != 1 {
		t.Errorf("Counter16.Reduce(65537): expected 1, got %d", actual)
	}
	if actual := MustNew(4).Add(15, 2); actual != 1 {
		t.Errorf("2^4 Add(15, 2): expected 1, got %d", actual)
	}
	if actual := Counter16.String(); actual != "2^16" {
		t.Errorf("String: expected %q, got %q", "2^16", actual)
	}
	if !(Modulus{}).IsZero() {
		t.Error("zero Modulus: expected IsZero")
	}
}

func TestNew(t *testing.T) {
	for _, bits := range []uint{0, 64, 100} {
		_, err := New(bits)
		var bitsErr BitsError
		if !errors.As(err, &bitsErr) {
			t.Errorf("New(%d): expected BitsError, got %v", bits, err)
		}
	}
	for _, bits := range []uint{1, 16, 32, 63} {
		m, err := New(bits)
		if err != nil {
			t.Errorf("New(%d): unexpected error: %v", bits, err)
			continue
		}
		if m.Bits() != bits {
			t.Errorf("New(%d).Bits: got %d", bits, m.Bits())
		}
	}
}
