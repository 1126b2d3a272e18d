package typing_test

import (
	"testing"
	"testing/fstest"

	"github.com/bxcodec/faker/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/typing"
)

func geomRegistry(t *testing.T) *typing.Registry {
	t.Helper()
	fsys := fstest.MapFS{
		"geom.json": &fstest.MapFile{Data: []byte(`{
			"module": "geom",
			"types": [
				{
					"name": "Point",
					"class": "struct",
					"members": [
						{"name": "x", "type": "int64"},
						{"name": "y", "type": "int64"}
					]
				}
			]
		}`)},
	}
	reg := typing.NewRegistry()
	if err := reg.LoadDir(fsys, "."); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	return reg
}

func TestValidateStructSucceeds(t *testing.T) {
	reg := geomRegistry(t)
	typei, err := reg.NewInstance("geom.Point")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	obj := object.NewDict()
	defer obj.Release()
	obj.DictSetInt64("x", 1)
	obj.DictSetInt64("y", 2)

	errs, ok := typing.Validate(typei, obj)
	defer errs.Release()
	if !ok {
		t.Fatalf("expected valid, got errors: %s", errs.Describe())
	}
	if errs.Count() != 0 {
		t.Fatalf("expected no errors, got %d", errs.Count())
	}
}

func TestValidateStructReportsPath(t *testing.T) {
	reg := geomRegistry(t)
	typei, err := reg.NewInstance("geom.Point")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	obj := object.NewDict()
	defer obj.Release()
	obj.DictSetInt64("x", 1)
	obj.DictSetString("y", "two")

	errs, ok := typing.Validate(typei, obj)
	defer errs.Release()
	if ok {
		t.Fatalf("expected validation failure")
	}
	if errs.Count() != 1 {
		t.Fatalf("expected exactly one error, got %d: %s", errs.Count(), errs.Describe())
	}
	path := errs.Get(0).DictGetString("path")
	if path != ".y" {
		t.Fatalf("expected error path %q, got %q", ".y", path)
	}
}

func TestValidateArrayGeneric(t *testing.T) {
	reg := typing.NewRegistry()
	typei, err := reg.NewInstance("array<int64>")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	good := object.NewArrayFrom([]*object.Value{object.NewInt64(1), object.NewInt64(2)})
	defer good.Release()
	if _, ok := typing.Validate(typei, good); !ok {
		t.Fatalf("expected array<int64> to accept [1,2]")
	}

	bad := object.NewArrayFrom([]*object.Value{object.NewInt64(1), object.NewString("x")})
	defer bad.Release()
	errs, ok := typing.Validate(typei, bad)
	defer errs.Release()
	if ok {
		t.Fatalf("expected array<int64> to reject [1,\"x\"]")
	}
	if path := errs.Get(0).DictGetString("path"); path != "[1]" {
		t.Fatalf("expected error path %q, got %q", "[1]", path)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	reg := geomRegistry(t)
	typei, err := reg.NewInstance("geom.Point")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	obj := object.NewDict()
	obj.DictSetInt64("x", 1)
	obj.DictSetInt64("y", 2)
	typed := obj.SetTypeInstance(typei)
	defer typed.Release()

	wire := typing.Serialize(typed)
	defer wire.Release()
	if wire.Tag() != object.Dict || wire.Count() != 2 {
		t.Fatalf("expected a two-key wrapper dict, got %s", wire.Describe())
	}
	if wire.DictGetString(typing.TypeField) != "geom.Point" {
		t.Fatalf("expected %%type geom.Point, got %q", wire.DictGetString(typing.TypeField))
	}

	back, err := typing.Deserialize(reg, wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	defer back.Release()
	if back.Tag() != object.Dict || back.DictGetInt64("x") != 1 || back.DictGetInt64("y") != 2 {
		t.Fatalf("round trip mismatch: %s", back.Describe())
	}
	bt, ok := back.TypeInstance().(*typing.Instance)
	if !ok || bt.CanonicalForm() != "geom.Point" {
		t.Fatalf("expected round-tripped value to carry geom.Point type instance")
	}
}

// point is a plain Go struct faker.FakeData populates with random field
// values, used below to fuzz Validate/Serialize/Deserialize with inputs
// this test file's author didn't hand-pick.
type point struct {
	X int64
	Y int64
}

func TestFuzzPointValidateAndRoundTrip(t *testing.T) {
	reg := geomRegistry(t)
	typei, err := reg.NewInstance("geom.Point")
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	for i := 0; i < 20; i++ {
		var p point
		if err := faker.FakeData(&p); err != nil {
			t.Fatalf("faker.FakeData: %v", err)
		}

		obj := object.NewDict()
		obj.DictSetInt64("x", p.X)
		obj.DictSetInt64("y", p.Y)

		errs, ok := typing.Validate(typei, obj)
		errs.Release()
		if !ok {
			obj.Release()
			t.Fatalf("expected %+v to validate against geom.Point", p)
		}

		typed := obj.SetTypeInstance(typei)
		wire := typing.Serialize(typed)
		typed.Release()
		back, err := typing.Deserialize(reg, wire)
		wire.Release()
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}

		got := point{X: back.DictGetInt64("x"), Y: back.DictGetInt64("y")}
		back.Release()
		if diff := cmp.Diff(p, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}
