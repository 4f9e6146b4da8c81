package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/1").
		JSON(map[string]string{"id": "1"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("Location") != "/api/transactions/1" {
		t.Fatal("Location header missing")
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["id"] != "1" {
		t.Fatalf("body = %q (%v)", rr.Body.String(), err)
	}
}

func TestJSONResponseBuilder_Warning(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Warning(`not "saved"`).Write(rr)
	if got := rr.Header().Get("Warning"); got != `199 glow "not \"saved\""` {
		t.Fatalf("Warning = %q", got)
	}
}

func TestJSONResponseBuilder_Raw(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Raw("application/pdf", []byte("%PDF-1.3")).Write(rr)
	if rr.Header().Get("Content-Type") != "application/pdf" || rr.Body.String() != "%PDF-1.3" {
		t.Fatalf("raw response = %q %q", rr.Header().Get("Content-Type"), rr.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().JSON(map[string]any{"bad": make(chan int)}).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRenderedResponse_Replay(t *testing.T) {
	rendered, err := NewJSONResponse().Status(http.StatusCreated).Header("X-Test", "1").JSON("ok").Render()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		rendered.Send(rr)
		if rr.Code != http.StatusCreated || rr.Header().Get("X-Test") != "1" || rr.Body.String() != "\"ok\"\n" {
			t.Fatalf("replay %d = %d %v %q", i, rr.Code, rr.Header(), rr.Body.String())
		}
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		b      *JSONResponseBuilder
		status int
		code   string
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest, "bad_request"},
		{"invalid input", UnprocessableEntityError("invalid input: empty title"), http.StatusUnprocessableEntity, "invalid_input"},
		{"not found", NotFoundError("gone"), http.StatusNotFound, "not_found"},
		{"conflict", ConflictError("dup"), http.StatusConflict, "conflict"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, "rate_limited"},
		{"internal", InternalServerError(), http.StatusInternalServerError, "internal_error"},
		{"method", MethodNotAllowedError(), http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.b.Write(rr)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.code || body.Message == "" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}
