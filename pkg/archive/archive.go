// Package archive stores end-of-session results in S3.
//
// Each game over produces a JSON record and, when the server returned one,
// the last processed frame as a JPEG next to it:
//
//	<prefix>2025/01/31/20250131T101500Z-3f9a1c.json
//	<prefix>2025/01/31/20250131T101500Z-3f9a1c.jpg
//
// Credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN.
package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
)

// ErrNoBucket is returned when archiving is configured without a bucket.
var ErrNoBucket = errors.New("archive: no bucket configured")

// Putter is the subset of the S3 client used by the archiver.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Record is one archived game over.
type Record struct {
	Score     int       `json:"score"`
	Highscore int       `json:"highscore"`
	EndedAt   time.Time `json:"ended_at"`
	Server    string    `json:"server"`

	// Frame is the last processed frame as a data URL. It is stored as a
	// separate object and not included in the JSON.
	Frame string `json:"-"`
}

// ClientConfig configures the S3 client.
type ClientConfig struct {
	Region   string
	Endpoint string
}

// NewClient creates an S3 client using credentials from the environment.
func NewClient(cfg ClientConfig) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("archive: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

// Archiver uploads records to one bucket.
type Archiver struct {
	client  Putter
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Archiver.
//
// Parameters:
//   - client: S3 client, usually from NewClient
//   - bucket: S3 bucket name
//   - prefix: key prefix (e.g., "sessions/")
func New(client Putter, bucket, prefix string, logger *slog.Logger) (*Archiver, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
		logger:  logger.With("component", "archive", "bucket", bucket),
	}, nil
}

// Save uploads rec and returns the key of the JSON object.
func (a *Archiver) Save(ctx context.Context, rec Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}
	base := a.key(rec.EndedAt)

	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	meta := map[string]string{
		"score":     strconv.Itoa(rec.Score),
		"highscore": strconv.Itoa(rec.Highscore),
	}
	if err := a.put(ctx, base+".json", "application/json", body, meta); err != nil {
		return "", err
	}

	if rec.Frame != "" {
		mime, img, err := protocol.DecodeDataURL(rec.Frame)
		if err != nil {
			a.logger.Warn("frame not archived", "key", base, "error", err)
		} else if err := a.put(ctx, base+".jpg", mime, img, meta); err != nil {
			return base + ".json", err
		}
	}
	return base + ".json", nil
}

func (a *Archiver) put(ctx context.Context, key, contentType string, body []byte, meta map[string]string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	a.logger.Debug("archived", "key", key, "size", humanize.Bytes(uint64(len(body))))
	return nil
}

func (a *Archiver) key(t time.Time) string {
	t = t.UTC()
	b := make([]byte, 3)
	rand.Read(b)
	return a.prefix + path.Join(t.Format("2006/01/02"), t.Format("20060102T150405Z")+"-"+hex.EncodeToString(b))
}
