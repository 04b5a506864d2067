package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"notepipe/internal/config"
	"notepipe/internal/domain"
)

// API is the subset of the S3 client the store uses.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements port.FileStore on a single bucket. Folders are key
// prefixes and a file's ID is its object key.
type Store struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	logger   *zap.Logger
}

// NewStore creates an S3-backed FileStore from configuration.
func NewStore(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewStoreWithAPI(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, logger), nil
}

// NewStoreWithAPI creates a store on an existing client (for testing).
func NewStoreWithAPI(client API, bucket string, logger *zap.Logger) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		logger:   logger,
	}
}

// List returns the objects and sub-prefixes directly under folder.
func (s *Store) List(ctx context.Context, folder string) ([]domain.SourceFile, error) {
	prefix := folderPrefix(folder)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var files []domain.SourceFile
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", folder, mapError(err))
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			files = append(files, domain.SourceFile{ID: aws.ToString(cp.Prefix), Name: name, IsFolder: true})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			name := path.Base(key)
			ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
			files = append(files, domain.SourceFile{
				ID:        key,
				Name:      name,
				Extension: ext,
				Size:      aws.ToInt64(obj.Size),
				MimeType:  domain.ContentTypeForExtension(ext),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	return files, nil
}

// Download returns the object stored under key id.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download: %w", mapError(err))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 download read: %w", err)
	}
	return data, nil
}

// Read returns the object at folder/name.
func (s *Store) Read(ctx context.Context, folder, name string) ([]byte, error) {
	return s.Download(ctx, objectKey(folder, name))
}

// Upload writes data to folder/name, overwriting any existing object.
func (s *Store) Upload(ctx context.Context, folder, name, contentType string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(folder, name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", mapError(err))
	}
	return nil
}

// Move copies the object into folder under the same base name and deletes the
// original. The two calls are not atomic; a failed delete leaves both copies.
func (s *Store) Move(ctx context.Context, id, folder string) error {
	dest := objectKey(folder, path.Base(id))
	if dest == id {
		return nil
	}
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dest),
		CopySource: aws.String(s.bucket + "/" + escapeKey(id)),
	})
	if err != nil {
		return fmt.Errorf("s3 copy %s: %w", id, mapError(err))
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", id, mapError(err))
	}
	s.logger.Debug("moved object", zap.String("from", id), zap.String("to", dest))
	return nil
}

// Exists reports whether folder/name is present in the bucket.
func (s *Store) Exists(ctx context.Context, folder, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(folder, name)),
	})
	if err == nil {
		return true, nil
	}
	err = mapError(err)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head: %w", err)
}

func folderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

func objectKey(folder, name string) string {
	return folderPrefix(folder) + name
}

// escapeKey URL-encodes each segment of key, keeping the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// mapError tags not-found and access-denied answers with the domain sentinels.
func mapError(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrAuth, err)
		}
	}
	return err
}
