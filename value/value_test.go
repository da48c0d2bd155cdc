package value

import (
	"strings"
	"testing"
)

// TestEquals tests value equality across tags and object types.
func TestEquals(t *testing.T) {
	hello1 := NewString("hello")
	hello2 := NewString("hello")
	world := NewString("world")

	tests := []struct {
		name string
		a    Value
		b    Value
		want bool
	}{
		{"nil == nil", Nil(), Nil(), true},
		{"true == true", FromBool(true), FromBool(true), true},
		{"true != false", FromBool(true), FromBool(false), false},
		{"1 == 1", FromInt32(1), FromInt32(1), true},
		{"1 != 2", FromInt32(1), FromInt32(2), false},
		{"cross-tag nil/false", Nil(), FromBool(false), false},
		{"cross-tag 1/true", FromInt32(1), FromBool(true), false},
		{"cross-tag 0/nil", FromInt32(0), Nil(), false},
		{"same string object", FromObj(hello1), FromObj(hello1), true},
		{"equal string bytes", FromObj(hello1), FromObj(hello2), true},
		{"unequal strings", FromObj(hello1), FromObj(world), false},
		{"cross-tag string/int", FromObj(hello1), FromInt32(1), false},
		{"same native index", FromObj(MakeNative(0)), FromObj(MakeNative(0)), true},
		{"different native index", FromObj(MakeNative(0)), FromObj(MakeNative(1)), false},
	}

	for _, tt := range tests {
		if got := Equals(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Equals = %v, want %v", tt.name, got, tt.want)
		}
		if got := Equals(tt.b, tt.a); got != tt.want {
			t.Errorf("%s (flipped): Equals = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestRepr tests the canonical forms of primitive values.
func TestRepr(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil(), "nil"},
		{FromBool(true), "true"},
		{FromBool(false), "false"},
		{FromInt32(42), "42"},
		{FromInt32(-7), "-7"},
	}

	for _, tt := range tests {
		if got := tt.v.Repr(); got != tt.want {
			t.Errorf("Repr() = %q, want %q", got, tt.want)
		}
	}
}

// TestStringRepr tests the quote-minimizing string representation.
func TestStringRepr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "'hello'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`both ' and "`, `'both \' and "'`},
		{`two '' one "`, `"two '' one \""`},
		{"tab\there", `'tab\there'`},
		{"line\nbreak", `'line\nbreak'`},
		{"carriage\rreturn", `'carriage\rreturn'`},
		{`back\slash`, `'back\\slash'`},
		{"", "''"},
	}

	for _, tt := range tests {
		if got := NewString(tt.input).Repr(); got != tt.want {
			t.Errorf("NewString(%q).Repr() = %s, want %s", tt.input, got, tt.want)
		}
	}
}

// TestAsSuccess tests the exit-code conversion.
func TestAsSuccess(t *testing.T) {
	if got := FromInt32(3).AsSuccess(); got != 3 {
		t.Errorf("FromInt32(3).AsSuccess() = %d, want 3", got)
	}
	if got := Nil().AsSuccess(); got != 0 {
		t.Errorf("Nil().AsSuccess() = %d, want 0", got)
	}
	if got := FromBool(true).AsSuccess(); got != 0 {
		t.Errorf("FromBool(true).AsSuccess() = %d, want 0", got)
	}
}

// TestNativeByName tests registry lookup, which backs the compiler's
// identifier resolution.
func TestNativeByName(t *testing.T) {
	for i, entry := range Natives {
		index, ok := NativeByName(entry.Name)
		if !ok {
			t.Errorf("NativeByName(%q) not found", entry.Name)
			continue
		}
		if int(index) != i {
			t.Errorf("NativeByName(%q) = %d, want %d", entry.Name, index, i)
		}
	}

	if _, ok := NativeByName("nosuch"); ok {
		t.Errorf("NativeByName(\"nosuch\") unexpectedly found")
	}
}

// TestNativePrint tests the display forms written by print: strings raw,
// everything else as its representation.
func TestNativePrint(t *testing.T) {
	var out strings.Builder
	savedStdout := Stdout
	Stdout = &out
	defer func() { Stdout = savedStdout }()

	result, err := nativePrint([]Value{
		FromObj(NewString("Hello, ")),
		FromObj(NewString("world")),
		FromInt32(42),
		Nil(),
	})
	if err != nil {
		t.Fatalf("print failed: %s", err)
	}
	if !result.IsNil() {
		t.Errorf("print returned %s, want nil", result.Repr())
	}
	if got := out.String(); got != "Hello, world42nil" {
		t.Errorf("print wrote %q, want %q", got, "Hello, world42nil")
	}
}

// TestNativeInput tests reading a line with and without a trailing newline.
func TestNativeInput(t *testing.T) {
	savedStdin := Stdin
	defer func() { Stdin = savedStdin }()

	tests := []struct {
		input string
		want  string
	}{
		{"hello\n", "hello"},
		{"windows\r\n", "windows"},
		{"no newline", "no newline"},
	}

	for _, tt := range tests {
		Stdin = strings.NewReader(tt.input)
		result, err := nativeInput(nil)
		if err != nil {
			t.Fatalf("input(%q) failed: %s", tt.input, err)
		}
		s, ok := result.AsObj().(*String)
		if !ok {
			t.Fatalf("input(%q) returned %s, want a string", tt.input, result.Repr())
		}
		if s.Characters != tt.want {
			t.Errorf("input(%q) = %q, want %q", tt.input, s.Characters, tt.want)
		}
	}
}
