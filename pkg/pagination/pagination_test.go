package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")
	if p.Limit != 0 || p.Offset != 0 {
		t.Errorf("expected unbounded first page, got %+v", p)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor("/?limit=5000"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_Negative(t *testing.T) {
	p := paramsFor("/?limit=-3&offset=-5")
	if p.Limit != 0 || p.Offset != 0 {
		t.Errorf("expected negatives clamped, got %+v", p)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name    string
		p       Params
		want    []int
		hasMore bool
	}{
		{"whole", Params{}, []int{1, 2, 3, 4, 5}, false},
		{"first page", Params{Limit: 2}, []int{1, 2}, true},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}, true},
		{"last page", Params{Limit: 2, Offset: 4}, []int{5}, false},
		{"past end", Params{Limit: 2, Offset: 9}, []int{}, false},
		{"offset only", Params{Offset: 3}, []int{4, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Page(items, tt.p)
			got := resp.Data.([]int)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
			if resp.Total != 5 {
				t.Errorf("expected total 5, got %d", resp.Total)
			}
			if resp.HasMore != tt.hasMore {
				t.Errorf("expected hasMore %v, got %v", tt.hasMore, resp.HasMore)
			}
		})
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasNext(20) || p.HasNext(15) {
		t.Error("unexpected HasNext")
	}
	if !p.HasPrevious() || (Params{Limit: 10}).HasPrevious() {
		t.Error("unexpected HasPrevious")
	}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset clamped to 0, got %d", p.PreviousOffset())
	}
	if (Params{}).HasNext(100) {
		t.Error("unbounded params never have a next page")
	}
}
