package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeLister struct {
	gotLimit int
	entries  []Entry
	err      error
}

func (f *fakeLister) Recent(ctx context.Context, limit int) ([]Entry, error) {
	f.gotLimit = limit
	return f.entries, f.err
}

func TestList(t *testing.T) {
	f := &fakeLister{entries: []Entry{{ID: "1", Action: "product.upserted", Actor: "admin-api", SubjectID: "prod_1"}}}
	rec := httptest.NewRecorder()
	Handlers{Repo: f}.List(rec, httptest.NewRequest(http.MethodGet, "/api/admin/audit?limit=5", nil))

	if rec.Code != http.StatusOK || f.gotLimit != 5 {
		t.Fatalf("status %d limit %d", rec.Code, f.gotLimit)
	}
	var body struct {
		Items []Entry `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Items) != 1 || body.Items[0].SubjectID != "prod_1" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestList_Error(t *testing.T) {
	rec := httptest.NewRecorder()
	Handlers{Repo: &fakeLister{err: errors.New("db down")}}.List(rec, httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}
