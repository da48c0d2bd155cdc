package code

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kerkeslager/fur-infinity/value"
)

// TestAppendReturnsOffset tests that Append reports the offset of each
// written byte.
func TestAppendReturnsOffset(t *testing.T) {
	c := New()

	for i := 0; i < 5; i++ {
		if got := c.Append(byte(OpNil), 1); got != i {
			t.Errorf("Append #%d returned offset %d, want %d", i, got, i)
		}
	}

	if c.Current() != 5 {
		t.Errorf("Current() = %d, want 5", c.Current())
	}
}

// TestLineRuns tests the run-length encoding of the line map and its
// invariant: the run counts always sum to the instruction count.
func TestLineRuns(t *testing.T) {
	c := New()

	lines := []int{1, 1, 1, 2, 2, 3, 1}
	for _, line := range lines {
		c.Append(byte(OpNil), line)
	}

	wantRuns := []LineRun{{1, 3}, {2, 2}, {3, 1}, {1, 1}}
	if len(c.LineRuns) != len(wantRuns) {
		t.Fatalf("got %d line runs, want %d", len(c.LineRuns), len(wantRuns))
	}
	for i, want := range wantRuns {
		if c.LineRuns[i] != want {
			t.Errorf("line run %d is %+v, want %+v", i, c.LineRuns[i], want)
		}
	}

	total := 0
	for _, run := range c.LineRuns {
		total += run.Run
	}
	if total != len(c.Instructions) {
		t.Errorf("line runs sum to %d, want %d", total, len(c.Instructions))
	}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{6, 1},
		{7, 0},
	}
	for _, tt := range tests {
		if got := c.LineAt(tt.offset); got != tt.want {
			t.Errorf("LineAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

// TestReadLittleEndian tests the signed little-endian operand decoders.
func TestReadLittleEndian(t *testing.T) {
	c := New()
	for _, b := range []byte{0x34, 0x12, 0xFE, 0xFF, 0x78, 0x56, 0x34, 0x12} {
		c.Append(b, 1)
	}

	if got := c.ReadU8(0); got != 0x34 {
		t.Errorf("ReadU8(0) = %#x, want 0x34", got)
	}
	if got := c.ReadI16(0); got != 0x1234 {
		t.Errorf("ReadI16(0) = %#x, want 0x1234", got)
	}
	if got := c.ReadI16(2); got != -2 {
		t.Errorf("ReadI16(2) = %d, want -2", got)
	}
	if got := c.ReadI32(4); got != 0x12345678 {
		t.Errorf("ReadI32(4) = %#x, want 0x12345678", got)
	}
}

// TestIntern tests index assignment and the one-byte capacity limit.
func TestIntern(t *testing.T) {
	c := New()

	for i := 0; i < MaxInterns; i++ {
		index, err := c.Intern(value.NewString(fmt.Sprintf("s%d", i)))
		if err != nil {
			t.Fatalf("Intern #%d failed: %s", i, err)
		}
		if int(index) != i {
			t.Fatalf("Intern #%d returned index %d", i, index)
		}
	}

	if _, err := c.Intern(value.NewString("overflow")); err == nil {
		t.Errorf("Intern #%d did not fail", MaxInterns)
	}

	s := c.Interned(255)
	if s.Repr() != "'s255'" {
		t.Errorf("Interned(255).Repr() = %s, want 's255'", s.Repr())
	}
}

// TestPatchJump tests delta computation, range checking, and decode.
func TestPatchJump(t *testing.T) {
	c := New()
	c.Append(byte(OpJump), 1)
	patch := c.Append(0, 1)
	c.Append(0, 1)

	tests := []struct {
		target  int
		ok      bool
		decoded int16
	}{
		{4, true, 3},
		{0, true, -1},
		{patch + 32767, true, 32767},
		{patch + 32768, false, 0},
		{patch - 32768, true, -32768},
		{patch - 32769, false, 0},
	}

	for _, tt := range tests {
		err := c.PatchJump(patch, tt.target)
		if tt.ok {
			if err != nil {
				t.Errorf("PatchJump(%d, %d) failed: %s", patch, tt.target, err)
				continue
			}
			if got := c.ReadI16(patch); got != tt.decoded {
				t.Errorf("PatchJump(%d, %d) wrote %d, want %d", patch, tt.target, got, tt.decoded)
			}
		} else if err == nil {
			t.Errorf("PatchJump(%d, %d) did not fail", patch, tt.target)
		}
	}
}

// TestDisassemble tests the rendering of a small instruction stream.
func TestDisassemble(t *testing.T) {
	c := New()
	c.Append(byte(OpInteger), 1)
	c.Append(7, 1)
	c.Append(0, 1)
	c.Append(0, 1)
	c.Append(0, 1)
	c.Append(byte(OpNegate), 2)
	c.Append(byte(OpReturn), 2)

	out := c.String()

	wantLines := []string{
		fmt.Sprintf("%04d %-14s %-6s; line %d", 0, "push_int", "7", 1),
		fmt.Sprintf("%04d %-14s %-6s; line %d", 5, "neg", "", 2),
		fmt.Sprintf("%04d %-14s %-6s; line %d", 6, "ret", "", 2),
	}
	got := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(got) != len(wantLines) {
		t.Fatalf("disassembly has %d lines, want %d:\n%s", len(got), len(wantLines), out)
	}
	for i, want := range wantLines {
		if got[i] != want {
			t.Errorf("disassembly line %d is %q, want %q", i, got[i], want)
		}
	}
}
