package objectstore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options locates an S3 bucket.
type S3Options struct {
	Bucket string
	Region string
	Prefix string
	// Endpoint points at an S3-compatible service; path-style addressing is
	// used when set.
	Endpoint string
	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      *nethttp.Client
}

// S3Store lists objects of one bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3 store.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	// The client goes on the S3 options: LoadDefaultConfig rejects a plain
	// *http.Client when AWS_CA_BUNDLE is set.
	httpClient, err := withCABundle(opts.HTTPClient, os.Getenv("AWS_CA_BUNDLE"))
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if httpClient != nil {
			o.HTTPClient = httpClient
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// List pages through ListObjectsV2.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	full := s.Key(prefix)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})

	var objects []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, full, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return objects, nil
}

// withCABundle returns client trusting the PEM certificates in bundlePath in
// addition to the system pool. Clients without a plain *http.Transport, such
// as the NTLM negotiator, are returned unchanged.
func withCABundle(client *nethttp.Client, bundlePath string) (*nethttp.Client, error) {
	if client == nil || bundlePath == "" {
		return client, nil
	}
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		return client, nil
	}

	pemData, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read AWS_CA_BUNDLE: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("AWS_CA_BUNDLE %s contains no PEM certificates", bundlePath)
	}

	tr = tr.Clone()
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tr.TLSClientConfig.RootCAs = pool

	out := *client
	out.Transport = tr
	return &out, nil
}

// Key joins rel onto the store prefix.
func (s *S3Store) Key(rel string) string {
	return joinPrefix(s.prefix, rel)
}

// URI returns s3://bucket/key.
func (s *S3Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + key
}
