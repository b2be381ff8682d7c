package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func testContext(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(testContext(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(testContext("limit=5&offset=10"))
	if p.Limit != 5 || p.Offset != 10 {
		t.Errorf("expected 5/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_ClampsMax(t *testing.T) {
	p := FromContext(testContext("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeIgnored(t *testing.T) {
	p := FromContext(testContext("limit=-1&offset=-3"))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got %d/%d", p.Limit, p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 50, 20, 0)
	if !r.HasMore {
		t.Error("expected has_more=true")
	}
	r = NewResponse(nil, 50, 20, 40)
	if r.HasMore {
		t.Error("expected has_more=false on last page")
	}
}

func TestNextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext for total=100")
	}
	if p.HasNext(60) {
		t.Error("expected no next page for total=60")
	}
}
