package request

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func validParams() Params {
	return Params{Latitude: f64(-23.5505), Longitude: f64(-46.6333), RadiusKm: f64(10)}
}

func fieldsOf(t *testing.T, err error) map[string]int {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	out := map[string]int{}
	for _, f := range verr.Fields {
		out[f.Field]++
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	r, err := New(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PageNumber() != DefaultPage {
		t.Errorf("PageNumber() = %d", r.PageNumber())
	}
	if r.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d", r.PageSize())
	}
	if r.Skip() != 0 || r.Take() != DefaultPageSize {
		t.Errorf("Skip/Take = %d/%d", r.Skip(), r.Take())
	}
	if !r.Filters().IsEmpty() {
		t.Error("expected empty filters")
	}
	if r.RadiusKm() != 10 || r.Center().Lat() != -23.5505 {
		t.Errorf("unexpected center/radius")
	}
}

func TestNew_SkipTake(t *testing.T) {
	p := validParams()
	p.PageNumber = intp(3)
	p.PageSize = intp(25)
	r, err := New(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Skip() != 50 || r.Take() != 25 {
		t.Errorf("Skip/Take = %d/%d, want 50/25", r.Skip(), r.Take())
	}
}

func TestNew_ReportsEveryField(t *testing.T) {
	p := Params{
		Latitude:   f64(95),
		Longitude:  f64(-200),
		RadiusKm:   f64(0),
		MinRating:  f64(6),
		ServiceIDs: []string{"not-a-uuid"},
		Tiers:      []string{"Diamond"},
		PageNumber: intp(-1),
		PageSize:   intp(101),
	}
	_, err := New(p)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	fields := fieldsOf(t, err)
	for _, want := range []string{
		"latitude", "longitude", "radiusInKm", "minRating",
		"serviceIds", "subscriptionTiers", "pageNumber", "pageSize",
	} {
		if fields[want] == 0 {
			t.Errorf("missing violation for %q (got %v)", want, fields)
		}
	}
}

func TestNew_RequiredFields(t *testing.T) {
	_, err := New(Params{})
	fields := fieldsOf(t, err)
	for _, want := range []string{"latitude", "longitude", "radiusInKm"} {
		if fields[want] != 1 {
			t.Errorf("expected required violation for %q, got %v", want, fields)
		}
	}
}

func TestNew_RadiusBounds(t *testing.T) {
	tests := []struct {
		radius float64
		ok     bool
	}{
		{0.001, true},
		{MaxRadiusKm, true},
		{MaxRadiusKm + 0.1, false},
		{-1, false},
	}
	for _, tt := range tests {
		p := validParams()
		p.RadiusKm = f64(tt.radius)
		_, err := New(p)
		if (err == nil) != tt.ok {
			t.Errorf("radius %v: err=%v, want ok=%v", tt.radius, err, tt.ok)
		}
	}
}

func TestNew_PageSizeBounds(t *testing.T) {
	for _, size := range []int{1, MaxPageSize} {
		p := validParams()
		p.PageSize = intp(size)
		if _, err := New(p); err != nil {
			t.Errorf("pageSize %d: unexpected error %v", size, err)
		}
	}
	for _, size := range []int{0, -5, MaxPageSize + 1} {
		p := validParams()
		p.PageSize = intp(size)
		if _, err := New(p); err == nil {
			t.Errorf("pageSize %d: expected error", size)
		}
	}
}

func TestNew_ExplicitZeroPagingRejected(t *testing.T) {
	p := validParams()
	p.PageNumber = intp(0)
	p.PageSize = intp(0)
	_, err := New(p)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	fields := fieldsOf(t, err)
	if fields["pageNumber"] != 1 || fields["pageSize"] != 1 {
		t.Errorf("expected pageNumber and pageSize violations, got %v", fields)
	}
}

func TestNew_EveryInvalidServiceIDReported(t *testing.T) {
	p := validParams()
	p.ServiceIDs = []string{uuid.NewString(), "x", "y", uuid.Nil.String()}
	_, err := New(p)
	if got := fieldsOf(t, err)["serviceIds"]; got != 3 {
		t.Errorf("expected 3 serviceIds violations, got %d", got)
	}
}

func TestNew_TooManyServiceIDs(t *testing.T) {
	p := validParams()
	for range MaxServiceIDs + 1 {
		p.ServiceIDs = append(p.ServiceIDs, uuid.NewString())
	}
	if _, err := New(p); err == nil {
		t.Fatal("expected error for too many service ids")
	}
}

func TestNew_ParsesFilters(t *testing.T) {
	sid := uuid.New()
	p := validParams()
	p.ServiceIDs = []string{sid.String(), " " + sid.String() + " "}
	p.Tiers = []string{"gold", "Platinum"}
	p.MinRating = f64(4)

	r, err := New(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := r.Filters()
	if len(f.ServiceIDs()) != 1 || f.ServiceIDs()[0] != sid {
		t.Errorf("ServiceIDs() = %v", f.ServiceIDs())
	}
	if len(f.Tiers()) != 2 || f.Tiers()[0] != provider.TierGold {
		t.Errorf("Tiers() = %v", f.Tiers())
	}
	if f.MinRating() == nil || *f.MinRating() != 4 {
		t.Errorf("MinRating() = %v", f.MinRating())
	}
}
