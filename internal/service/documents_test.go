package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"docrag/internal/blob"
	blob_mocks "docrag/internal/blob/mocks"
	"docrag/internal/extract"
	"docrag/internal/indexer"
	"docrag/internal/llm"
	"docrag/internal/rag"
	"docrag/internal/service"
	"docrag/internal/service/mocks"
	"docrag/internal/storage"
	storage_mocks "docrag/internal/storage/mocks"
	"docrag/internal/vectorstore"
)

type testStack struct {
	svc    service.DocumentService
	index  *vectorstore.BadgerIndex
	engine *rag.Engine
}

// newTestStack wires the document service over real sqlite, filesystem,
// badger and hash-embedding components.
func newTestStack(t *testing.T) *testStack {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.New(filepath.Join(dir, "docrag.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	blobs, err := blob.NewFSStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}

	index, err := vectorstore.OpenBadger("", vectorstore.BadgerOptions{Dimension: 128, InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	embedder := llm.NewHashEmbedder(128)
	pipeline := indexer.NewPipeline(embedder, index, indexer.WithMaxChunkSize(20))

	svc := service.NewDocumentService(
		storage.NewDocumentRepo(db),
		storage.NewVersionRepo(db),
		blobs,
		extract.New(),
		pipeline,
		index,
	)
	return &testStack{svc: svc, index: index, engine: rag.NewEngine(embedder, index)}
}

func TestDocumentService_UploadAndQuery(t *testing.T) {
	ctx := testContext()
	stack := newTestStack(t)

	res, err := stack.svc.Upload(ctx, service.UploadRequest{
		FileName: "facts.txt",
		Data:     []byte("The sky is blue. Grass is green. Water is wet."),
		Title:    "Facts",
		Tags:     "nature, colors,",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Status != storage.StatusIndexed || res.Chunks != 3 || res.VersionNumber != 1 {
		t.Fatalf("Upload() = %+v", res)
	}

	doc, err := stack.svc.Get(ctx, res.DocumentID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Status != storage.StatusIndexed || doc.Language != "en" || doc.Category != "general" || doc.UploadedBy != "system" {
		t.Errorf("Get() = %+v", doc.DocumentRecord)
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "nature" || doc.Tags[1] != "colors" {
		t.Errorf("Tags = %v", doc.Tags)
	}
	if len(doc.Versions) != 1 || doc.Versions[0] != res.VersionID {
		t.Errorf("Versions = %v, want [%s]", doc.Versions, res.VersionID)
	}

	versions, err := stack.svc.Versions(ctx, res.DocumentID)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	// sha256("The sky is blue. Grass is green. Water is wet.")
	if len(versions) != 1 || len(versions[0].FileHash) != 64 || !versions[0].Embedded || versions[0].ChunkCount != 3 {
		t.Errorf("Versions() = %+v", versions[0])
	}

	got, err := stack.engine.Retrieve(ctx, "What color is grass?", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got != "Grass is green." {
		t.Errorf("Retrieve() = %q", got)
	}

	preview, err := stack.svc.Preview(ctx, res.DocumentID)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	data, _ := io.ReadAll(preview.Body)
	_ = preview.Body.Close()
	if preview.FileName != "facts.txt" || string(data) != "The sky is blue. Grass is green. Water is wet." {
		t.Errorf("Preview() = %q, %q", preview.FileName, data)
	}
}

func TestDocumentService_DeleteCascades(t *testing.T) {
	ctx := testContext()
	stack := newTestStack(t)

	keep, err := stack.svc.Upload(ctx, service.UploadRequest{FileName: "keep.txt", Data: []byte("Fire is hot."), Title: "Keep"})
	if err != nil {
		t.Fatal(err)
	}
	drop, err := stack.svc.Upload(ctx, service.UploadRequest{FileName: "drop.txt", Data: []byte("Ice is cold. Snow is white."), Title: "Drop"})
	if err != nil {
		t.Fatal(err)
	}

	if err := stack.svc.Delete(ctx, drop.DocumentID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if n, _ := stack.index.Count(ctx); n != keep.Chunks {
		t.Errorf("index Count() = %d, want %d", n, keep.Chunks)
	}
	if _, err := stack.svc.Get(ctx, drop.DocumentID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := stack.svc.Delete(ctx, drop.DocumentID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	docs, err := stack.svc.List(ctx)
	if err != nil || len(docs) != 1 || docs[0].ID != keep.DocumentID {
		t.Errorf("List() = %v, %v", docs, err)
	}
}

func TestDocumentService_UploadStatuses(t *testing.T) {
	ctx := testContext()
	stack := newTestStack(t)

	empty, err := stack.svc.Upload(ctx, service.UploadRequest{FileName: "blank.txt", Data: []byte("   "), Title: "Blank"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if empty.Status != storage.StatusEmpty {
		t.Errorf("Status = %q, want %q", empty.Status, storage.StatusEmpty)
	}

	bad, err := stack.svc.Upload(ctx, service.UploadRequest{FileName: "bad.txt", Data: []byte{0xff, 0xfe, 0xfd}, Title: "Bad"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	var extErr *extract.ExtractionError
	if bad.Status != storage.StatusFailed || !errors.As(bad.IngestErr, &extErr) {
		t.Errorf("Upload(invalid utf-8) = %+v", bad)
	}

	// Both documents are kept so they can be previewed or deleted.
	docs, _ := stack.svc.List(ctx)
	if len(docs) != 2 {
		t.Errorf("List() = %d documents, want 2", len(docs))
	}
}

func TestDocumentService_UploadValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No dependency should be touched for invalid requests.
	svc := service.NewDocumentService(
		storage_mocks.NewMockDocumentStore(ctrl),
		storage_mocks.NewMockVersionStore(ctrl),
		blob_mocks.NewMockStore(ctrl),
		mocks.NewMockTextExtractor(ctrl),
		mocks.NewMockIngester(ctrl),
		mocks.NewMockIndexPurger(ctrl),
	)

	tests := []struct {
		name      string
		req       service.UploadRequest
		wantField string
	}{
		{name: "missing file", req: service.UploadRequest{Title: "t"}, wantField: "file"},
		{name: "unsupported type", req: service.UploadRequest{FileName: "a.exe", Title: "t"}, wantField: "file"},
		{name: "missing title", req: service.UploadRequest{FileName: "a.txt", Title: " "}, wantField: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(testContext(), tt.req)
			var validationErr *service.ValidationError
			if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
				t.Errorf("Upload() error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestDocumentService_UploadBlobFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := storage_mocks.NewMockDocumentStore(ctrl)
	blobs := blob_mocks.NewMockStore(ctrl)

	docs.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *storage.DocumentRecord) error {
			doc.ID = "doc-1"
			return nil
		})
	blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), int64(5)).Return(errors.New("disk full"))
	docs.EXPECT().Delete(gomock.Any(), "doc-1").Return(nil)

	svc := service.NewDocumentService(docs, storage_mocks.NewMockVersionStore(ctrl), blobs,
		mocks.NewMockTextExtractor(ctrl), mocks.NewMockIngester(ctrl), mocks.NewMockIndexPurger(ctrl))

	_, err := svc.Upload(testContext(), service.UploadRequest{FileName: "a.txt", Data: []byte("hello"), Title: "A"})
	if err == nil {
		t.Fatal("Upload() expected error when blob store fails")
	}
}

func TestDocumentService_DeleteIndexFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := storage_mocks.NewMockDocumentStore(ctrl)
	versions := storage_mocks.NewMockVersionStore(ctrl)
	purger := mocks.NewMockIndexPurger(ctrl)

	docs.EXPECT().GetByID(gomock.Any(), "doc-1").Return(&storage.DocumentRecord{ID: "doc-1"}, nil)
	versions.EXPECT().ListByDocument(gomock.Any(), "doc-1").
		Return([]*storage.VersionRecord{{ID: "v1", BlobKey: "doc-1/v1_a.txt"}}, nil)
	indexErr := &vectorstore.IndexError{Op: "delete", Err: errors.New("io")}
	purger.EXPECT().DeleteBySource(gomock.Any(), "doc-1/v1_a.txt").Return(0, indexErr)
	// docs.Delete and blob deletes must not run.

	svc := service.NewDocumentService(docs, versions, blob_mocks.NewMockStore(ctrl),
		mocks.NewMockTextExtractor(ctrl), mocks.NewMockIngester(ctrl), purger)

	err := svc.Delete(testContext(), "doc-1")
	var target *vectorstore.IndexError
	if !errors.As(err, &target) {
		t.Errorf("Delete() error = %v, want IndexError", err)
	}
}

func TestDocumentService_PreviewMissingFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := storage_mocks.NewMockDocumentStore(ctrl)
	versions := storage_mocks.NewMockVersionStore(ctrl)
	blobs := blob_mocks.NewMockStore(ctrl)

	docs.EXPECT().GetByID(gomock.Any(), "doc-1").Return(&storage.DocumentRecord{ID: "doc-1", FileName: "a.txt"}, nil)
	versions.EXPECT().ListByDocument(gomock.Any(), "doc-1").
		Return([]*storage.VersionRecord{{ID: "v1", BlobKey: "doc-1/v1_a.txt"}}, nil)
	blobs.EXPECT().Get(gomock.Any(), "doc-1/v1_a.txt").Return(nil, blob.ErrNotFound)

	svc := service.NewDocumentService(docs, versions, blobs,
		mocks.NewMockTextExtractor(ctrl), mocks.NewMockIngester(ctrl), mocks.NewMockIndexPurger(ctrl))

	_, err := svc.Preview(testContext(), "doc-1")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Preview() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentService_GetNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := storage_mocks.NewMockDocumentStore(ctrl)
	docs.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

	svc := service.NewDocumentService(docs, storage_mocks.NewMockVersionStore(ctrl), blob_mocks.NewMockStore(ctrl),
		mocks.NewMockTextExtractor(ctrl), mocks.NewMockIngester(ctrl), mocks.NewMockIndexPurger(ctrl))

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
