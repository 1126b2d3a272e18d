package object

import (
	"strings"
	"testing"
)

func TestPackUnpackDictArrayRoundTrip(t *testing.T) {
	v, err := Pack("{s:i,s:[i,i,i]}", "n", int64(3), "xs", int64(1), int64(2), int64(3))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	defer v.Release()

	if v.Tag() != Dict {
		t.Fatalf("Tag() = %v, want Dict", v.Tag())
	}
	if got := v.DictGetInt64("n"); got != 3 {
		t.Errorf("DictGetInt64(n) = %d, want 3", got)
	}
	xs := v.DictGet("xs")
	if xs.Tag() != Array || xs.Count() != 3 {
		t.Fatalf("xs = %v, want a 3-element array", xs)
	}
	for i, want := range []int64{1, 2, 3} {
		if got := xs.GetInt64(i); got != want {
			t.Errorf("xs[%d] = %d, want %d", i, got, want)
		}
	}

	var a, b, c, d int64
	bound, err := Unpack(v, "{s:i,s:[i,i,i]}", "n", &a, &b, &c, "xs", &d)
	if err == nil {
		t.Fatalf("Unpack with mismatched key placement should have failed, bound=%d", bound)
	}

	a, b, c, d = 0, 0, 0, 0
	bound, err = Unpack(v, "{s:i,s:[i,i,i]}", "n", &a, "xs", &b, &c, &d)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if bound != 4 {
		t.Errorf("bound = %d, want 4", bound)
	}
	got := [4]int64{a, b, c, d}
	want := [4]int64{3, 1, 2, 3}
	if got != want {
		t.Errorf("unpacked = %v, want %v", got, want)
	}
}

func TestPackScalarTokens(t *testing.T) {
	v, err := Pack("[b,i,u,d,s]", true, int64(-7), uint64(9), 2.5, "hi")
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	defer v.Release()

	if !v.GetBool(0) {
		t.Errorf("element 0 should be true")
	}
	if v.GetInt64(1) != -7 {
		t.Errorf("element 1 = %d, want -7", v.GetInt64(1))
	}
	if v.GetUint64(2) != 9 {
		t.Errorf("element 2 = %d, want 9", v.GetUint64(2))
	}
	if v.GetDouble(3) != 2.5 {
		t.Errorf("element 3 = %v, want 2.5", v.GetDouble(3))
	}
	if v.GetString(4) != "hi" {
		t.Errorf("element 4 = %q, want hi", v.GetString(4))
	}
}

func TestUnpackSkipAndRemainder(t *testing.T) {
	v, err := Pack("[i,i,i,i]", int64(1), int64(2), int64(3), int64(4))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	defer v.Release()

	var first int64
	var rest *Value
	bound, err := Unpack(v, "[i,*,R]", &first, &rest)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if bound != 2 {
		t.Errorf("bound = %d, want 2", bound)
	}
	if first != 1 {
		t.Errorf("first = %d, want 1", first)
	}
	defer rest.Release()
	if rest.Count() != 2 {
		t.Fatalf("rest.Count() = %d, want 2", rest.Count())
	}
	if rest.GetInt64(0) != 3 || rest.GetInt64(1) != 4 {
		t.Errorf("rest = %v, want [3,4]", rest.Describe())
	}
}

func TestRefcountZeroReleasesChildren(t *testing.T) {
	child := NewString("leaf")
	arr := NewArrayFrom([]*Value{child.Retain()})
	child.Release() // caller no longer needs its own handle

	if child.refcount.Load() != 1 {
		t.Fatalf("child refcount = %d, want 1 (owned only by arr)", child.refcount.Load())
	}
	arr.Release()
	if child.refcount.Load() != 0 {
		t.Fatalf("child refcount = %d, want 0 after arr released", child.refcount.Load())
	}
}

func TestCopyDeterminism(t *testing.T) {
	v, err := Pack("{s:i,s:[i,i,i]}", "n", int64(3), "xs", int64(1), int64(2), int64(3))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	defer v.Release()

	cp, err := v.Copy()
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	defer cp.Release()

	if v.Hash() != cp.Hash() {
		t.Errorf("hash(copy(v)) != hash(v)")
	}
	if !Equal(v, cp) {
		t.Errorf("Equal(v, copy(v)) = false")
	}
	if v.DictGet("xs") == cp.DictGet("xs") {
		t.Errorf("Copy should not alias the source's nested Values")
	}
}

func TestHashOrderIndependentForArraysAndDicts(t *testing.T) {
	a, _ := Pack("[i,i,i]", int64(1), int64(2), int64(3))
	b, _ := Pack("[i,i,i]", int64(3), int64(2), int64(1))
	defer a.Release()
	defer b.Release()

	if a.Hash() != b.Hash() {
		t.Errorf("array hash should be order-independent")
	}
	if !Equal(a, b) {
		t.Errorf("Equal should treat reordered arrays as equal")
	}
}

func TestEqualRejectsDifferentStructureDespiteHash(t *testing.T) {
	// Array hashes XOR-fold their elements, so [1,1] and [2,2] both hash to
	// the bare Array tag hash: equal hashes, different structure.
	a := NewArrayFrom([]*Value{NewInt64(1), NewInt64(1)})
	b := NewArrayFrom([]*Value{NewInt64(2), NewInt64(2)})
	defer a.Release()
	defer b.Release()

	if a.Hash() != b.Hash() {
		t.Fatalf("test values must collide on Hash, got %d and %d", a.Hash(), b.Hash())
	}
	if Equal(a, b) {
		t.Fatalf("structurally different arrays must not compare Equal despite equal hashes")
	}
}

func TestDescribeContainsScalars(t *testing.T) {
	v := NewDict()
	v.DictSetInt64("n", 3)
	defer v.Release()

	desc := v.Describe()
	if v.DictGetInt64("n") != 3 {
		t.Fatalf("DictGetInt64 regressed")
	}
	if !strings.Contains(desc, "int64: 3") {
		t.Fatalf("Describe output %q does not contain the scalar %q", desc, "int64: 3")
	}
}
