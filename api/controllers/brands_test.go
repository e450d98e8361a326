package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scentlab/perfumery-backend/internal/brands"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
)

type stubBrandService struct {
	names []string
}

func (s *stubBrandService) List(ctx context.Context) ([]brands.BrandDTO, error) {
	out := make([]brands.BrandDTO, 0, len(s.names))
	for i, name := range s.names {
		out = append(out, brands.BrandDTO{ID: int64(i + 1), Name: name})
	}
	return out, nil
}

func (s *stubBrandService) Create(ctx context.Context, req brands.CreateBrandRequest) (*brands.BrandDTO, error) {
	for _, name := range s.names {
		if name == req.Name {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "brand already exists")
		}
	}
	s.names = append(s.names, req.Name)
	return &brands.BrandDTO{ID: int64(len(s.names)), Name: req.Name}, nil
}

func TestBrandCreateAndList(t *testing.T) {
	svc := &stubBrandService{}

	rec := httptest.NewRecorder()
	BrandCreate(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodPost, "/api/brands", `{"name":"  Guerlain "}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	BrandCreate(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodPost, "/api/brands", `{"name":"Guerlain"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	BrandList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brands", nil))
	var list []brands.BrandDTO
	decodeData(t, rec, &list)
	if len(list) != 1 || list[0].Name != "Guerlain" {
		t.Fatalf("unexpected brands %+v", list)
	}
}
