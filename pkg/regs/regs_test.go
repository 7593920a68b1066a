package regs

import "testing"

func TestSizedAccess(t *testing.T) {
	var f File
	f.Write(1, 0x1122334455667788)

	if got := f.ReadSized(1, 4); got != 0x55667788 {
		t.Errorf("4-byte read = %#x, want 0x55667788", got)
	}
	if got := f.ReadSized(1, 1); got != 0x88 {
		t.Errorf("1-byte read = %#x, want 0x88", got)
	}

	// Narrow writes clear the whole slot.
	f.WriteSized(1, 0xffff_ffff_0000_00aa, 2)
	if got := f.Read(1); got != 0x00aa {
		t.Errorf("slot after 2-byte write = %#x, want 0xaa", got)
	}
}

func TestOutOfRangeSlots(t *testing.T) {
	var f File
	f.Write(-1, 1)
	f.Write(NumRegs, 1)
	if f.Read(-1) != 0 || f.Read(NumRegs) != 0 {
		t.Errorf("out-of-range slots are readable")
	}
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		value uint64
		size  int
		want  int64
	}{
		{0x80, 1, -128},
		{0x7f, 1, 127},
		{0xffff, 2, -1},
		{0x8000_0000, 4, -0x8000_0000},
		{0xffff_ffff_ffff_ffff, 8, -1},
	}
	for _, tc := range cases {
		if got := SignExtend(tc.value, tc.size); got != tc.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", tc.value, tc.size, got, tc.want)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	var f File
	f.Write(3, 42)
	snap := f.Snapshot()

	f.Write(3, 0)
	f.Restore(snap)
	if got := f.Read(3); got != 42 {
		t.Errorf("slot after restore = %d, want 42", got)
	}
}
