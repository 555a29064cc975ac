package lms

import (
	"net/url"
	"testing"
)

func TestEncodeFlattensNestedParams(t *testing.T) {
	form := url.Values{}
	p := params{
		"enrolments": []any{
			map[string]any{"roleid": int64(5), "userid": int64(9), "courseid": int64(42)},
			map[string]any{"roleid": int64(5), "userid": int64(10), "courseid": int64(42)},
		},
		"suspend": false,
	}
	p.encode(form)

	want := map[string]string{
		"enrolments[0][roleid]":   "5",
		"enrolments[0][userid]":   "9",
		"enrolments[0][courseid]": "42",
		"enrolments[1][userid]":   "10",
		"suspend":                 "0",
	}
	for key, value := range want {
		if got := form.Get(key); got != value {
			t.Fatalf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestEncodeScalarTypes(t *testing.T) {
	form := url.Values{}
	params{
		"field": "id",
		"value": int64(3),
		"ratio": 1.5,
		"flag":  true,
		"empty": nil,
	}.encode(form)

	if got := form.Get("value"); got != "3" {
		t.Fatalf("int64: %q", got)
	}
	if got := form.Get("ratio"); got != "1.5" {
		t.Fatalf("float: %q", got)
	}
	if got := form.Get("flag"); got != "1" {
		t.Fatalf("bool: %q", got)
	}
	if _, ok := form["empty"]; ok {
		t.Fatal("nil value must be omitted")
	}
}
