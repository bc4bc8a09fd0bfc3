package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Storage wraps LocalStorage and adds s3:// resolution and uploads.
// Downloaded objects are kept in the temp directory until Cleanup.
type S3Storage struct {
	*LocalStorage
	client *s3.Client
	bucket string
	region string

	mu         sync.Mutex
	downloads  map[string]string
	inProgress map[string]*sync.WaitGroup
}

// NewS3Storage creates a new S3Storage instance.
// The tempDir parameter specifies where downloaded files are stored.
// The cfg parameter contains S3 configuration.
func NewS3Storage(tempDir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(tempDir)
	if err != nil {
		return nil, err
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		downloads:    make(map[string]string),
		inProgress:   make(map[string]*sync.WaitGroup),
	}, nil
}

// Resolve downloads s3:// references once and returns the local copy. Other
// references are resolved by LocalStorage.
func (s *S3Storage) Resolve(ctx context.Context, ref string) (string, error) {
	bucket, key, ok := ParseS3Ref(ref)
	if !ok {
		return s.LocalStorage.Resolve(ctx, ref)
	}

	for {
		s.mu.Lock()
		if p, ok := s.downloads[ref]; ok {
			s.mu.Unlock()
			return p, nil
		}
		wg, busy := s.inProgress[ref]
		if !busy {
			wg = &sync.WaitGroup{}
			wg.Add(1)
			s.inProgress[ref] = wg
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
		wg.Wait()
	}

	p, err := s.fetch(ctx, bucket, key)

	s.mu.Lock()
	if err == nil {
		s.downloads[ref] = p
	}
	wg := s.inProgress[ref]
	delete(s.inProgress, ref)
	s.mu.Unlock()
	wg.Done()

	return p, err
}

func (s *S3Storage) fetch(ctx context.Context, bucket, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	p, err := s.SaveTemp(ctx, path.Base(key), out.Body)
	if err != nil {
		return "", fmt.Errorf("store S3 object: %w", err)
	}
	return p, nil
}

// Upload uploads data to the configured bucket and returns the public URL.
func (s *S3Storage) Upload(ctx context.Context, key string, data io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return url, nil
}

// Cleanup removes every downloaded object.
func (s *S3Storage) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	paths := make([]string, 0, len(s.downloads))
	for ref, p := range s.downloads {
		paths = append(paths, p)
		delete(s.downloads, ref)
	}
	s.mu.Unlock()

	return s.CleanupTemp(ctx, paths)
}

var _ Storage = (*S3Storage)(nil)
