package drive

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

// FolderMimeType is the vendor MIME type assigned to folder entries.
const FolderMimeType = "application/vnd.orgdesk.folder"

// S3Config holds connection settings for the S3-backed drive service.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Token is the access credential callers must present.
	Token string

	// URLTTL is the validity window for shareable URLs.
	URLTTL time.Duration
}

// S3Service implements Service on an S3-compatible bucket. File IDs are
// object keys; folders are key prefixes.
type S3Service struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	token   string
	urlTTL  time.Duration
}

// NewS3Service creates an S3-backed drive service.
func NewS3Service(ctx context.Context, cfg S3Config) (*S3Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}

	svc := &S3Service{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		token:   cfg.Token,
		urlTTL:  cfg.URLTTL,
	}

	if err := svc.ensureBucket(ctx); err != nil {
		logging.Error("bucket check failed", zap.Error(err))
	}

	return svc, nil
}

func (s *S3Service) ensureBucket(ctx context.Context) error {
	start := time.Now()
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		_, createErr := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(s.bucket),
		})
		if createErr != nil {
			metrics.RecordDriveOperation("create_bucket", time.Since(start), false)
			return fmt.Errorf("bucket %s does not exist and cannot create: %w", s.bucket, createErr)
		}
		metrics.RecordDriveOperation("create_bucket", time.Since(start), true)
		logging.Info("created drive bucket", zap.String("bucket", s.bucket))
	}
	return nil
}

func (s *S3Service) checkToken(token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// ListFiles returns all non-folder objects in the bucket.
func (s *S3Service) ListFiles(ctx context.Context, token string) ([]File, error) {
	if err := s.checkToken(token); err != nil {
		return nil, err
	}

	start := time.Now()
	files := []File{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordDriveOperation("list_files", time.Since(start), false)
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			files = append(files, File{
				ID:       key,
				Name:     path.Base(key),
				MimeType: mimeTypeForKey(key),
			})
		}
	}

	metrics.RecordDriveOperation("list_files", time.Since(start), true)
	return files, nil
}

// ListFolders returns all folder entries (distinct top-level key prefixes).
func (s *S3Service) ListFolders(ctx context.Context, token string) ([]File, error) {
	if err := s.checkToken(token); err != nil {
		return nil, err
	}

	start := time.Now()
	folders := []File{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordDriveOperation("list_folders", time.Since(start), false)
			return nil, fmt.Errorf("list prefixes: %w", err)
		}
		for _, prefix := range page.CommonPrefixes {
			p := aws.ToString(prefix.Prefix)
			folders = append(folders, File{
				ID:       p,
				Name:     path.Base(p),
				MimeType: FolderMimeType,
			})
		}
	}

	metrics.RecordDriveOperation("list_folders", time.Since(start), true)
	return folders, nil
}

// Rename copies the object to a key with the new base name and removes the
// old one. The rename stays within the file's current prefix.
func (s *S3Service) Rename(ctx context.Context, token, fileID, newName string) error {
	if err := s.checkToken(token); err != nil {
		return err
	}

	start := time.Now()
	dir := path.Dir(fileID)
	newKey := newName
	if dir != "." && dir != "/" {
		newKey = dir + "/" + newName
	}
	if newKey == fileID {
		return nil
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(s.bucket + "/" + fileID),
	})
	if err != nil {
		metrics.RecordDriveOperation("rename", time.Since(start), false)
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("rename %s -> %s: %w", fileID, newKey, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		metrics.RecordDriveOperation("rename", time.Since(start), false)
		return fmt.Errorf("remove old key %s: %w", fileID, err)
	}

	metrics.RecordDriveOperation("rename", time.Since(start), true)
	logging.Debug("drive rename", zap.String("from", fileID), zap.String("to", newKey))
	return nil
}

// Delete removes the object identified by fileID.
func (s *S3Service) Delete(ctx context.Context, token, fileID string) error {
	if err := s.checkToken(token); err != nil {
		return err
	}

	start := time.Now()
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		metrics.RecordDriveOperation("delete", time.Since(start), false)
		return ErrNotFound
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		metrics.RecordDriveOperation("delete", time.Since(start), false)
		return fmt.Errorf("delete object %s: %w", fileID, err)
	}

	metrics.RecordDriveOperation("delete", time.Since(start), true)
	logging.Debug("drive delete", zap.String("id", fileID))
	return nil
}

// FileURL returns a time-limited presigned GET URL for the object.
func (s *S3Service) FileURL(ctx context.Context, token, fileID string) (string, error) {
	if err := s.checkToken(token); err != nil {
		return "", err
	}

	start := time.Now()
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		metrics.RecordDriveOperation("get_url", time.Since(start), false)
		return "", ErrNotFound
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		metrics.RecordDriveOperation("get_url", time.Since(start), false)
		return "", fmt.Errorf("presign %s: %w", fileID, err)
	}

	metrics.RecordDriveOperation("get_url", time.Since(start), true)
	return req.URL, nil
}

func mimeTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}
