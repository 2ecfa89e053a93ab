package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestDocumentRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))

	doc := &DocumentRecord{
		Title:      "Quarterly Report",
		FileName:   "report.pdf",
		Tags:       []string{"finance", "q3"},
		Language:   "en",
		Category:   "reports",
		UploadedBy: "alex",
	}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Create() should generate an ID")
	}
	if doc.Status != StatusUploaded {
		t.Errorf("Status = %q, want %q", doc.Status, StatusUploaded)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != doc.Title || got.FileName != doc.FileName || got.Category != "reports" || got.UploadedBy != "alex" {
		t.Errorf("GetByID() = %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"finance", "q3"}) {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestDocumentRepo_GetByID_NotFound(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_EmptyTags(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))

	doc := &DocumentRecord{Title: "t", FileName: "f.txt", Language: "en", Category: "general", UploadedBy: "system"}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", got.Tags)
	}
}

func TestDocumentRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))

	docs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("List() on empty db = %#v, want empty slice", docs)
	}

	for _, title := range []string{"first", "second", "third"} {
		if err := repo.Create(ctx, &DocumentRecord{Title: title, FileName: title + ".txt"}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("List() returned %d documents, want 3", len(docs))
	}
	if docs[0].Title != "third" {
		t.Errorf("List()[0] = %q, want newest first", docs[0].Title)
	}
}

func TestDocumentRepo_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))

	doc := &DocumentRecord{Title: "t", FileName: "f.txt"}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateStatus(ctx, doc.ID, StatusIndexed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, doc.ID)
	if got.Status != StatusIndexed {
		t.Errorf("Status = %q, want %q", got.Status, StatusIndexed)
	}

	if err := repo.UpdateStatus(ctx, "missing", StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	versions := NewVersionRepo(db)

	doc := &DocumentRecord{Title: "t", FileName: "f.txt"}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := versions.Create(ctx, &VersionRecord{DocumentID: doc.ID, BlobKey: "k", FileHash: "h"}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	left, err := versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("versions after delete = %d, want 0", len(left))
	}

	if err := repo.Delete(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
