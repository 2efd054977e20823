package staging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"programme-studio/internal/logging"
	"programme-studio/internal/media"
)

type fakeUploader struct {
	input *awss3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	b, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Location: "https://bucket.example.test/" + aws.ToString(input.Key)}, nil
}

func videoOnDisk(t *testing.T, size int) media.File {
	t.Helper()
	p := filepath.Join(t.TempDir(), "flow.mp4")
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return media.File{Path: p, Name: "flow.mp4", MediaType: "video/mp4", Size: int64(size)}
}

func TestStageUploadsUnderPrefixedKey(t *testing.T) {
	upl := &fakeUploader{}
	s := newS3Stager(Config{Bucket: "media", Prefix: "/uploads/"}, upl, logging.Nop())
	s.newID = func() string { return "abc" }

	video := videoOnDisk(t, 4096)
	progress := media.NewProgress(video.Size)
	key, err := s.Stage(context.Background(), video, progress)
	if err != nil {
		t.Fatal(err)
	}
	if key != "uploads/abc/flow.mp4" {
		t.Fatalf("key mismatch: got %q", key)
	}
	if got := aws.ToString(upl.input.Bucket); got != "media" {
		t.Fatalf("bucket mismatch: got %q", got)
	}
	if got := aws.ToString(upl.input.ContentType); got != "video/mp4" {
		t.Fatalf("content type mismatch: got %q", got)
	}
	if len(upl.body) != 4096 {
		t.Fatalf("body size mismatch: got %d", len(upl.body))
	}
	if done := progress.Snapshot().Done; done != 4096 {
		t.Fatalf("progress mismatch: got %d want 4096", done)
	}
}

func TestStageWrapsUploadErrors(t *testing.T) {
	boom := errors.New("access denied")
	s := newS3Stager(Config{Bucket: "media"}, &fakeUploader{err: boom}, logging.Nop())
	_, err := s.Stage(context.Background(), videoOnDisk(t, 16), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}

func TestStageRequiresBackingFile(t *testing.T) {
	s := newS3Stager(Config{Bucket: "media"}, &fakeUploader{}, logging.Nop())
	_, err := s.Stage(context.Background(), media.NewFile("flow.mp4", "video/mp4", 10), nil)
	if !errors.Is(err, media.ErrNoBackingFile) {
		t.Fatalf("expected ErrNoBackingFile, got %v", err)
	}
}

func TestObjectKeyWithoutPrefix(t *testing.T) {
	s := newS3Stager(Config{Bucket: "media"}, &fakeUploader{}, logging.Nop())
	s.newID = func() string { return "id1" }
	if got := s.objectKey(`C:\videos\flow.mp4`); got != "id1/flow.mp4" {
		t.Fatalf("key mismatch: got %q", got)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), Config{}, logging.Nop()); err == nil {
		t.Fatal("expected missing bucket error")
	}
}
