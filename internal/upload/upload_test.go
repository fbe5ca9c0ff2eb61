package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutAPI struct {
	objects map[string]string
	fail    error
}

func (f *fakePutAPI) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(input.Bucket)+"/"+aws.ToString(input.Key)] = string(data)
	return &manager.UploadOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in         string
		bucket     string
		prefix     string
		shouldFail bool
	}{
		{"s3://bucket", "bucket", "", false},
		{"s3://bucket/", "bucket", "", false},
		{"s3://bucket/some/prefix/", "bucket", "some/prefix", false},
		{"s3:///prefix", "", "", true},
		{"bucket/prefix", "", "", true},
	}
	for _, tt := range tests {
		bucket, prefix, err := ParseS3URL(tt.in)
		if (err != nil) != tt.shouldFail {
			t.Errorf("ParseS3URL(%q) error = %v", tt.in, err)
			continue
		}
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3URL(%q) = %q, %q; want %q, %q", tt.in, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "42.zip")
	b := filepath.Join(dir, "#metadata.txt")
	os.WriteFile(a, []byte("zip"), 0644)
	os.WriteFile(b, []byte("meta"), 0644)

	api := &fakePutAPI{objects: make(map[string]string)}
	u := NewWithAPI(api, "bucket", "galleries")
	if err := u.Upload(context.Background(), []string{a, b}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if api.objects["bucket/galleries/42.zip"] != "zip" {
		t.Errorf("missing archive object: %v", api.objects)
	}
	if api.objects["bucket/galleries/#metadata.txt"] != "meta" {
		t.Errorf("missing metadata object: %v", api.objects)
	}
}

func TestUploadErrors(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "1.jpg")
	os.WriteFile(a, []byte("x"), 0644)

	boom := errors.New("access denied")
	u := NewWithAPI(&fakePutAPI{fail: boom}, "bucket", "")
	if err := u.Upload(context.Background(), []string{a}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped upload error, got %v", err)
	}
	u = NewWithAPI(&fakePutAPI{objects: map[string]string{}}, "bucket", "")
	if err := u.Upload(context.Background(), []string{filepath.Join(dir, "missing.jpg")}); err == nil {
		t.Error("expected error for missing file")
	}
}
