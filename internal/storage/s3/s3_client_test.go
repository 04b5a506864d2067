package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notepipe/internal/domain"
	s3store "notepipe/internal/storage/s3"
)

// memBucket is an in-memory stand-in for one S3 bucket.
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[aws.ToString(in.Key)] = data
	b.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (b *memBucket) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (b *memBucket) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (b *memBucket) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (b *memBucket) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (b *memBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	seen := map[string]bool{}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, delim); delim != "" && i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
			}
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(b.objects[k]))),
			LastModified: aws.Time(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		})
	}
	return out, nil
}

func (b *memBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *memBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (b *memBucket) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src := strings.TrimPrefix(aws.ToString(in.CopySource), aws.ToString(in.Bucket)+"/")
	src = strings.ReplaceAll(src, "%20", " ")
	data, ok := b.objects[src]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	b.objects[aws.ToString(in.Key)] = data
	return &s3.CopyObjectOutput{}, nil
}

func (b *memBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_List(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["inbox/"] = nil
	bucket.objects["inbox/Scan.JPG"] = []byte("jpg")
	bucket.objects["inbox/archive/old.png"] = []byte("png")
	bucket.objects["elsewhere/x.png"] = []byte("png")
	store := s3store.NewStoreWithAPI(bucket, "notes", zap.NewNop())

	files, err := store.List(context.Background(), "inbox")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.True(t, files[0].IsFolder)
	assert.Equal(t, "archive", files[0].Name)

	assert.Equal(t, "inbox/Scan.JPG", files[1].ID)
	assert.Equal(t, "Scan.JPG", files[1].Name)
	assert.Equal(t, "jpg", files[1].Extension)
	assert.Equal(t, "image/jpeg", files[1].MimeType)
	assert.Equal(t, int64(3), files[1].Size)
	assert.Equal(t, 2024, files[1].CreatedAt.Year())
}

func TestStore_UploadDownload(t *testing.T) {
	bucket := newMemBucket()
	store := s3store.NewStoreWithAPI(bucket, "notes", zap.NewNop())

	err := store.Upload(context.Background(), "out/", "note.md", "text/markdown", []byte("# title"))
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", bucket.types["out/note.md"])

	data, err := store.Download(context.Background(), "out/note.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# title"), data)
}

func TestStore_Download_Missing(t *testing.T) {
	store := s3store.NewStoreWithAPI(newMemBucket(), "notes", zap.NewNop())

	_, err := store.Download(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Read(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["out/2024-03-05 Plan.md"] = []byte("# plan")
	store := s3store.NewStoreWithAPI(bucket, "notes", zap.NewNop())

	data, err := store.Read(context.Background(), "out/", "2024-03-05 Plan.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# plan"), data)

	_, err = store.Read(context.Background(), "out", "absent.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Move(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["inbox/board photo.png"] = []byte("png")
	store := s3store.NewStoreWithAPI(bucket, "notes", zap.NewNop())

	require.NoError(t, store.Move(context.Background(), "inbox/board photo.png", "inbox/processed"))

	_, stillThere := bucket.objects["inbox/board photo.png"]
	assert.False(t, stillThere)
	assert.Equal(t, []byte("png"), bucket.objects["inbox/processed/board photo.png"])
}

func TestStore_Exists(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["out/a.md"] = []byte("a")
	store := s3store.NewStoreWithAPI(bucket, "notes", zap.NewNop())

	ok, err := store.Exists(context.Background(), "out", "a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(context.Background(), "out", "b.md")
	require.NoError(t, err)
	assert.False(t, ok)
}
