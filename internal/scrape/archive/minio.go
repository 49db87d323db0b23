package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
)

const (
	defaultPrefix = "scrape-jobs"
	contentType   = "application/json"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	region          string
	prefix          string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
		prefix: defaultPrefix,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// Snapshot is what the runner keeps of a finished scrape: the raw rows the
// backend matched next to the records extracted from them.
type Snapshot struct {
	JobID    uuid.UUID               `json:"jobId"`
	Provider scrape.ProviderIdentity `json:"provider"`
	Rows     []backend.Match         `json:"rows"`
	Records  []scrape.InvoiceRecord  `json:"records"`
}

// MinioArchive stores scrape snapshots in an S3 compatible bucket.
type MinioArchive struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioArchive(opts ...MinioOpts) (*MinioArchive, error) {
	cfg := newConfig(opts...)
	if cfg.endpoint == "" || cfg.bucket == "" {
		return nil, fmt.Errorf("minio archive needs an endpoint and a bucket")
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, err
	}

	return &MinioArchive{cfg: cfg, client: client}, nil
}

// Key is the object key of the snapshot of job.
func (m *MinioArchive) Key(jobID uuid.UUID) string {
	return path.Join(m.cfg.prefix, jobID.String(), "snapshot.json")
}

// Put uploads s and returns its object key.
func (m *MinioArchive) Put(ctx context.Context, s Snapshot) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	key := m.Key(s.JobID)
	_, err = m.client.PutObject(ctx, m.cfg.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"provider": string(s.Provider),
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot of job %s: %w", s.JobID, err)
	}
	return key, nil
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithRegion(region string) MinioOpts {
	return func(c *minioConfig) {
		c.region = region
	}
}

func WithPrefix(prefix string) MinioOpts {
	return func(c *minioConfig) {
		c.prefix = prefix
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
