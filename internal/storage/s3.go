package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/logger"
)

// deleteBatchMax is the per-request key limit of the DeleteObjects API.
const deleteBatchMax = 1000

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string

	// UploadTimeout bounds a single upload; zero means one hour.
	UploadTimeout time.Duration

	// PartSize is the multipart threshold and part size in bytes; zero
	// means 15MB.
	PartSize int64
}

// S3Store implements ObjectStore against any S3-compatible service.
type S3Store struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	uploader      *manager.Uploader
	bucket        string
	uploadTimeout time.Duration
	logger        *logger.Logger
}

// NewS3Store creates a new S3-compatible storage client.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
//   - log: logger for storage diagnostics.
// Returns:
//   - *S3Store: initialized storage client.
//   - error: non-nil if the client cannot be created.
func NewS3Store(cfg *S3Config, log *logger.Logger) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage configuration is incomplete")
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // path-style for S3-compatible services
	})

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = 15 * 1024 * 1024
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = time.Hour
	}

	return &S3Store{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		uploader:      uploader,
		bucket:        cfg.Bucket,
		uploadTimeout: uploadTimeout,
		logger:        log,
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return strings.TrimSuffix(endpoint, "/")
}

// List enumerates all keys under prefix, draining continuation tokens so
// callers never see pagination.
func (s *S3Store) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}

	listing := &Listing{}
	seenPrefixes := make(map[string]struct{})

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			listing.Keys = append(listing.Keys, aws.ToString(obj.Key))
		}
		for _, cp := range page.CommonPrefixes {
			p := aws.ToString(cp.Prefix)
			if _, ok := seenPrefixes[p]; !ok {
				seenPrefixes[p] = struct{}{}
				listing.CommonPrefixes = append(listing.CommonPrefixes, p)
			}
		}
	}

	return listing, nil
}

// UploadFile uploads a local file under key. Files larger than the
// configured part size go through multipart transfer. The whole operation
// is bounded by the upload timeout; on expiry it is cancelled and reported
// as a failure rather than hanging.
func (s *S3Store) UploadFile(ctx context.Context, localPath, key, contentType string, progress ProgressFunc) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrUploadFailed, localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrUploadFailed, localPath, err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	var body io.Reader = f
	if progress != nil {
		body = &progressReader{reader: f, total: info.Size(), report: progress}
	}

	_, err = s.uploader.Upload(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.WithFields(logger.Fields{
			logger.FieldStorageKey: key,
			logger.FieldSize:       info.Size(),
		}).WithError(err).Error("Upload failed")
		if uploadCtx.Err() != nil {
			return fmt.Errorf("%w: upload of %s cancelled after %s", domain.ErrUploadFailed, key, s.uploadTimeout)
		}
		return fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	if progress != nil {
		progress(100)
	}
	return nil
}

// Presign returns a time-limited GET URL for key. Signing happens locally
// with the client credentials; repeated calls may differ but each URL is
// valid until its own expiry.
func (s *S3Store) Presign(key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}
	return req.URL, nil
}

// BatchDelete removes the given keys. Any per-key error fails the whole
// batch even if the store deleted some of them; callers must treat failure
// as "nothing guaranteed deleted". Deleting a missing key is not an error.
func (s *S3Store) BatchDelete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchMax {
		end := start + deleteBatchMax
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			s.logger.WithError(err).Error("Batch delete failed")
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			s.logger.WithFields(logger.Fields{
				logger.FieldCount:      len(out.Errors),
				logger.FieldStorageKey: aws.ToString(first.Key),
			}).Error("Batch delete reported per-key errors")
			return fmt.Errorf("failed to delete %d object(s), first %q: %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// Exists checks if an object exists in storage.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// progressReader reports read progress as a percentage of the total size.
type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 && r.total > 0 {
		read := atomic.AddInt64(&r.read, int64(n))
		pct := float64(read) / float64(r.total) * 100
		if pct > 100 {
			pct = 100
		}
		r.report(pct)
	}
	return n, err
}
