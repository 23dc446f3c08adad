package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orgdesk/orgdesk/internal/management"
)

type fakeRecordStore struct {
	records map[int]*management.Record
	nextID  int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[int]*management.Record{}, nextID: 1}
}

func (s *fakeRecordStore) Get(ctx context.Context, id int) (*management.Record, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, management.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRecordStore) List(ctx context.Context) ([]management.Record, error) {
	var out []management.Record
	for _, r := range s.records {
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeRecordStore) Create(ctx context.Context, r *management.Record) (*management.Record, error) {
	cp := *r
	cp.ID = s.nextID
	s.nextID++
	s.records[cp.ID] = &cp
	return &cp, nil
}

func (s *fakeRecordStore) Update(ctx context.Context, id int, r *management.Record) (*management.Record, error) {
	if _, ok := s.records[id]; !ok {
		return nil, management.ErrNotFound
	}
	cp := *r
	cp.ID = id
	s.records[id] = &cp
	return &cp, nil
}

func (s *fakeRecordStore) Delete(ctx context.Context, id int) error {
	if _, ok := s.records[id]; !ok {
		return management.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func newRecordServer(store *fakeRecordStore, fd *fakeDrive) *Server {
	return NewServer(fd, management.NewService(store, fd, "drive-token"), nil)
}

func TestCreateAndGetRecord(t *testing.T) {
	store := newFakeRecordStore()
	srv := newRecordServer(store, &fakeDrive{})

	body := `{"name":"Dana Oliver","position":"Director","email":"dana@example.org"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/management", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleCreateRecord(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/management/1", nil)
	req.SetPathValue("id", "1")
	rec = httptest.NewRecorder()
	srv.handleGetRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	var env struct {
		Success bool              `json:"success"`
		Data    management.Record `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Name != "Dana Oliver" || env.Data.Position != "Director" {
		t.Errorf("got record %+v", env.Data)
	}
}

func TestCreateRecordRequiresName(t *testing.T) {
	srv := newRecordServer(newFakeRecordStore(), &fakeDrive{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/management", strings.NewReader(`{"position":"Clerk"}`))
	rec := httptest.NewRecorder()
	srv.handleCreateRecord(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListRecordsEmptyIsArray(t *testing.T) {
	srv := newRecordServer(newFakeRecordStore(), &fakeDrive{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/management", nil)
	rec := httptest.NewRecorder()
	srv.handleListRecords(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("empty list not serialized as []: %s", rec.Body.String())
	}
}

func TestUpdateRecordNotFound(t *testing.T) {
	srv := newRecordServer(newFakeRecordStore(), &fakeDrive{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/management/42", strings.NewReader(`{"name":"Nobody"}`))
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	srv.handleUpdateRecord(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateRecordReplacesFields(t *testing.T) {
	store := newFakeRecordStore()
	store.records[1] = &management.Record{ID: 1, Name: "Old", Position: "Clerk", Email: "old@example.org"}
	store.nextID = 2
	srv := newRecordServer(store, &fakeDrive{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/management/1", strings.NewReader(`{"name":"New"}`))
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	srv.handleUpdateRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// Full replace: fields absent from the body are cleared.
	if got := store.records[1]; got.Email != "" || got.Name != "New" {
		t.Errorf("after update: %+v", got)
	}
}

func TestDeleteRecordRemovesPhoto(t *testing.T) {
	store := newFakeRecordStore()
	store.records[1] = &management.Record{
		ID:    1,
		Name:  "Dana Oliver",
		Photo: "https://drive.google.com/file/d/PHOTO1/view",
	}
	store.nextID = 2
	fd := &fakeDrive{}
	srv := newRecordServer(store, fd)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/management/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	srv.handleDeleteRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if fd.deleteCalls != 1 || fd.lastFileID != "PHOTO1" {
		t.Errorf("drive delete calls = %d, fileID = %q", fd.deleteCalls, fd.lastFileID)
	}
	if _, ok := store.records[1]; ok {
		t.Error("record still present after delete")
	}
}

func TestRecordIDValidation(t *testing.T) {
	srv := newRecordServer(newFakeRecordStore(), &fakeDrive{})

	for _, bad := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/management/"+bad, nil)
		req.SetPathValue("id", bad)
		rec := httptest.NewRecorder()
		srv.handleGetRecord(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", bad, rec.Code)
		}
	}
}
