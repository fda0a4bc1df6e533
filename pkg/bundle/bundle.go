// Package bundle fetches the agentstack deployment bundle — the compose
// file, env template, and Dockerfiles — from the public release bucket and
// unpacks it into the install directory.
package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/agentstack/stackctl/pkg/errors"
)

// Fetcher downloads release bundles over anonymous S3 access.
type Fetcher struct {
	s3Client *s3.Client
	bucket   string
}

// NewFetcher creates a fetcher for the public release bucket.
func NewFetcher(ctx context.Context, bucket, region string) (*Fetcher, error) {
	slog.Debug("bundle_fetcher_init", "bucket", bucket, "region", region)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Fetcher{s3Client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// DownloadResult describes a fetched bundle archive.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download fetches one bundle object and computes its SHA-256 while copying.
func (f *Fetcher) Download(ctx context.Context, key, localPath string) (*DownloadResult, error) {
	slog.Info("bundle_download_start", "bucket", f.bucket, "key", key)

	obj, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get bundle %s", key)
	}
	defer obj.Body.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local bundle file")
	}
	defer out.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hash), obj.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download bundle %s", key)
	}
	checksum := hex.EncodeToString(hash.Sum(nil))

	slog.Info("bundle_download_complete", "key", key, "size_kb", size/1024, "sha256", checksum[:16]+"...")
	return &DownloadResult{LocalPath: localPath, SHA256: checksum, Size: size}, nil
}

// Exists checks whether a bundle object is published.
func (f *Fetcher) Exists(ctx context.Context, key string) (bool, error) {
	_, err := f.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to check bundle %s", key)
	}
	return true, nil
}
