package payload

import "testing"

func TestParseRejectsNonObject(t *testing.T) {
	for _, body := range []string{"", "[]", "null", `"id"`} {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestDocumentString(t *testing.T) {
	doc, err := Parse([]byte(`{
		"id": "evt_1",
		"data": {"id": 555, "object": {"id": " pi_1 "}},
		"resource": {"purchase_units": [{"payments": {"captures": [{"id": "CAP-1"}]}}]},
		"live": true,
		"empty": null
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cases := []struct {
		path []string
		want string
	}{
		{[]string{"id"}, "evt_1"},
		{[]string{"data", "id"}, "555"},
		{[]string{"data", "object", "id"}, "pi_1"},
		{[]string{"resource", "purchase_units", "0", "payments", "captures", "0", "id"}, "CAP-1"},
		{[]string{"resource", "purchase_units", "1", "payments"}, ""},
		{[]string{"live"}, "true"},
		{[]string{"empty"}, ""},
		{[]string{"missing", "id"}, ""},
		{[]string{"data"}, ""},
	}
	for _, tc := range cases {
		if got := doc.String(tc.path...); got != tc.want {
			t.Fatalf("path %v: expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestDocumentFirstString(t *testing.T) {
	doc, err := Parse([]byte(`{"id":"fallback","data":{}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := doc.FirstString("data.id", "id"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if doc.Has("data", "id") {
		t.Fatalf("expected data.id to be absent")
	}
}
