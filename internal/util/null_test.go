package util

import "testing"

func TestNullString(t *testing.T) {
	if ns := NullString(""); ns.Valid {
		t.Error("empty string should be invalid")
	}
	if ns := NullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("expected valid %q, got %+v", "hello", ns)
	}
}

func TestNullStringPtr(t *testing.T) {
	if ns := NullStringPtr(nil); ns.Valid {
		t.Error("nil pointer should be invalid")
	}
	s := "hello"
	if ns := NullStringPtr(&s); !ns.Valid || ns.String != "hello" {
		t.Errorf("expected valid %q, got %+v", "hello", ns)
	}
}

func TestNullStringToPtr(t *testing.T) {
	if p := NullStringToPtr(NullString("")); p != nil {
		t.Errorf("expected nil, got %q", *p)
	}
	if p := NullStringToPtr(NullString("hello")); p == nil || *p != "hello" {
		t.Errorf("expected %q, got %v", "hello", p)
	}
}
