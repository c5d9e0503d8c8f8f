package agent

import (
	"errors"
	"testing"

	"collegeseeker/types"
)

func TestNormalize_MixedFragments(t *testing.T) {
	body := []byte(`[{"text":"a"}, "b"]`)

	got, err := ParseResponse(body).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\nb" {
		t.Fatalf("expected %q, got %q", "a\nb", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	body := []byte(`[{"text":"a"}, "b"]`)

	first, err := ParseResponse(body).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseResponse([]byte(first)).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("normalization not idempotent: %q != %q", second, first)
	}
}

func TestNormalize_SingleObjectResponse(t *testing.T) {
	body := []byte(`{"response":"the answer"}`)

	got, err := ParseResponse(body).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "the answer" {
		t.Fatalf("expected %q, got %q", "the answer", got)
	}
}

func TestNormalize_StreamedObjects(t *testing.T) {
	body := []byte(`{"response":"part one "}
{"response":"part two"}
{"response":""}`)

	got, err := ParseResponse(body).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "part one\npart two" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalize_JSONString(t *testing.T) {
	got, err := ParseResponse([]byte(`"quoted answer"`)).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "quoted answer" {
		t.Fatalf("expected %q, got %q", "quoted answer", got)
	}
}

func TestNormalize_RawText(t *testing.T) {
	got, err := ParseResponse([]byte("plain model output")).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain model output" {
		t.Fatalf("expected raw text passthrough, got %q", got)
	}
}

func TestNormalize_NothingExtractable(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{"empty body", []byte("")},
		{"whitespace", []byte("  \n\t ")},
		{"empty fragments", []byte(`[{"text":""}, ""]`)},
		{"unknown object shape", []byte(`{"tokens": 42}`)},
		{"truncated stream", []byte(`{"response":"part one"}` + "\n" + `{"resp`)},
		{"malformed array", []byte(`[{"text":"a"`)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseResponse(c.body).Normalize()
			if err == nil {
				t.Fatal("expected EmptyResponseError")
			}
			var ere types.EmptyResponseError
			if !errors.As(err, &ere) {
				t.Fatalf("expected EmptyResponseError, got %T", err)
			}
		})
	}
}

func TestNormalize_DropsUnknownFragmentShapes(t *testing.T) {
	body := []byte(`[{"meta":{"k":1}}, {"text":"kept"}]`)

	got, err := ParseResponse(body).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "kept" {
		t.Fatalf("expected unknown fragments dropped, got %q", got)
	}
}
