package codec_test

import (
	"testing"

	"github.com/cheewill/go-librpc/codec"
	"github.com/cheewill/go-librpc/object"
)

func TestEncodeDecodeScalarRoundTrip(t *testing.T) {
	d := object.NewDict()
	defer d.Release()
	d.DictSetInt64("n", 3)
	arr := object.NewArrayFrom([]*object.Value{object.NewInt64(1), object.NewInt64(2), object.NewInt64(3)})
	d.DictSet("xs", arr)
	arr.Release()
	d.DictSetString("s", "hello")
	d.DictSetDouble("f", 1.5)
	d.DictSetBool("b", true)

	bytes, err := codec.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := codec.Decode(bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer back.Release()

	if back.DictGetInt64("n") != 3 {
		t.Fatalf("expected n=3, got %d", back.DictGetInt64("n"))
	}
	if back.DictGetString("s") != "hello" {
		t.Fatalf("expected s=hello, got %q", back.DictGetString("s"))
	}
	if back.DictGetDouble("f") != 1.5 {
		t.Fatalf("expected f=1.5, got %v", back.DictGetDouble("f"))
	}
	if !back.DictGetBool("b") {
		t.Fatalf("expected b=true")
	}
	xs := back.DictGet("xs")
	if xs.Count() != 3 || xs.GetInt64(0) != 1 || xs.GetInt64(2) != 3 {
		t.Fatalf("expected xs=[1,2,3], got %s", xs.Describe())
	}
}

func TestEncodeRejectsBareFD(t *testing.T) {
	v := object.NewFD(0)
	defer v.Release()
	if _, err := codec.Encode(v); err == nil {
		t.Fatalf("expected Encode to reject a bare fd Value")
	}
}

func TestEncodeFrameDecodeFrameRoundTripsFD(t *testing.T) {
	v := object.NewFD(1) // stdout; duplicated, never closed by the test
	defer v.Release()

	payload, fds, err := codec.EncodeFrame(v)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(fds) != 1 {
		t.Fatalf("expected exactly one descriptor, got %d", len(fds))
	}

	back, err := codec.DecodeFrame(payload, fds)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	defer back.Release()
	if back.Tag() != object.FD {
		t.Fatalf("expected fd tag, got %s", back.Tag())
	}
	if back.FD() != fds[0] {
		t.Fatalf("expected round-tripped fd %d, got %d", fds[0], back.FD())
	}
}

func TestErrorRoundTrip(t *testing.T) {
	extra := object.NewString("extra detail")
	e := object.NewError(5, "boom", extra)
	extra.Release()
	defer e.Release()

	bytes, err := codec.Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := codec.Decode(bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer back.Release()
	if back.Tag() != object.Error || back.ErrorCode() != 5 || back.ErrorMessage() != "boom" {
		t.Fatalf("error round trip mismatch: %s", back.Describe())
	}
	if back.ErrorExtra() == nil || back.ErrorExtra().String() != "extra detail" {
		t.Fatalf("expected extra to round trip")
	}
}
