package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juanlo017/cerves-app/internal/model"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		query string
		want  model.GroupScope
	}{
		{"", model.AllScope()},
		{"?group=personal", model.PersonalScope()},
		{"?group=null", model.PersonalScope()},
		{"?group=abc", model.InGroup("abc")},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/consumptions"+tt.query, nil)
		if got := parseScope(r); got != tt.want {
			t.Errorf("parseScope(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestValidCode(t *testing.T) {
	valid := []string{"ABCD", "PENA2026", "ABCDEFGHIJKL"}
	invalid := []string{"", "ABC", "ABCDEFGHIJKLM", "ab cd", "PEÑA", "AB-CD"}
	for _, c := range valid {
		if !validCode(c) {
			t.Errorf("validCode(%q) = false, want true", c)
		}
	}
	for _, c := range invalid {
		if validCode(c) {
			t.Errorf("validCode(%q) = true, want false", c)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", " a ", "", "b", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("dedupe = %q, want [a b]", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Name string }

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	if decodeJSON(rec, r, &v) {
		t.Fatal("empty body should fail")
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "request body is required") {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	if decodeJSON(rec, r, &v) {
		t.Fatal("truncated body should fail")
	}

	rec = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Peña"}`))
	if !decodeJSON(rec, r, &v) || v.Name != "Peña" {
		t.Errorf("decoded %+v", v)
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.InvitationBadge("u", "received", "i")
	n.InvitationReceived("u", "i", "g", "p")
	n.GroupChanged("g", "updated", []string{"u"})
	n.MemberJoined("g", "G", "u", "p", []string{"u"})
}
