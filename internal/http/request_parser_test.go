package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"glow/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, "application/json", `{"title":" Lunch\u0007 ","amount":12.5,"type":"expense","date":"2024-06-01"}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if !p.IsJSON() {
		t.Fatal("expected JSON")
	}
	got := p.Candidate()
	want := core.Candidate{Title: "Lunch", Amount: "12.5", Kind: "expense", Date: "2024-06-01"}
	if got != want {
		t.Fatalf("Candidate() = %+v, want %+v", got, want)
	}
}

func TestRequestBodyParser_JSONWithoutContentType(t *testing.T) {
	p := newParser(t, "", `{"title":"x","kind":"income"}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if !p.IsJSON() || p.Get("kind") != "income" {
		t.Fatalf("body not detected as JSON: %+v", p.Candidate())
	}
}

func TestRequestBodyParser_KindWinsOverType(t *testing.T) {
	p := newParser(t, "application/json", `{"kind":"income","type":"expense"}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if got := p.Candidate().Kind; got != "income" {
		t.Fatalf("Kind = %q", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "title=Bus+ticket&amount=2%2C40&category=travel")
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.IsJSON() {
		t.Fatal("form parsed as JSON")
	}
	c := p.Candidate()
	if c.Title != "Bus ticket" || c.Amount != "2,40" || c.Category != "travel" {
		t.Fatalf("Candidate() = %+v", c)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body string
	}{
		{"truncated json", "application/json", `{"title":`},
		{"json array", "application/json", `[1,2]`},
		{"json null", "application/json", `null`},
		{"oversized", "application/json", `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newParser(t, tt.ct, tt.body).Parse(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "application/json", "")
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.Candidate() != (core.Candidate{}) {
		t.Fatalf("expected an empty candidate, got %+v", p.Candidate())
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 8, false},
		{"limit=3", 3, false},
		{"limit=5000", 100, false},
		{"limit=0", 0, true},
		{"limit=-1", 0, true},
		{"limit=ten", 0, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, err := ParseLimit(q, "limit", 8, 100)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, %v", tt.query, got, err)
		}
	}
}

func TestParseReferenceTime(t *testing.T) {
	now := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	got, err := ParseReferenceTime(url.Values{}, now)
	if err != nil || !got.Equal(now) {
		t.Fatalf("absent date = %v, %v", got, err)
	}
	got, err = ParseReferenceTime(url.Values{"date": {"2023-12-31"}}, now)
	if err != nil || got.Year() != 2023 || got.Month() != time.December {
		t.Fatalf("explicit date = %v, %v", got, err)
	}
	if _, err := ParseReferenceTime(url.Values{"date": {"31/12/2023"}}, now); err == nil {
		t.Fatal("expected an error for a non-ISO date")
	}
}

func TestFingerprint(t *testing.T) {
	a := core.Candidate{Title: "ab", Amount: "c"}
	b := core.Candidate{Title: "a", Amount: "bc"}
	if fingerprint(a) == fingerprint(b) {
		t.Fatal("field boundaries must affect the fingerprint")
	}
	if fingerprint(a) != fingerprint(a) {
		t.Fatal("fingerprint is not stable")
	}
}
