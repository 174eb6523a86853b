package sink

import (
	"bytes"
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/util/sanitize"
)

// S3 uploads results to a bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	logger *logging.Logger
}

// NewS3 loads the AWS configuration (environment, shared config files) and
// applies the region, endpoint and static credentials from cfg on top.
func NewS3(ctx context.Context, bucket, prefix string, cfg *config.Config, httpClient *nethttp.Client, logger *logging.Logger) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 destination needs a bucket")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var opts []func(*awsconfig.LoadOptions) error
	if c := awsHTTPClient(httpClient, logger); c != nil {
		opts = append(opts, awsconfig.WithHTTPClient(c))
	}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			cfg.S3SessionToken,
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			// S3-compatible stores (MinIO, Ceph) rarely support virtual-hosted buckets
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// awsHTTPClient carries the settings of httpClient into an SDK buildable
// client. The SDK can only add an AWS_CA_BUNDLE to clients that expose
// WithTransportOptions, which a plain *http.Client does not.
//
// Round trippers other than *http.Transport (NTLM proxy) cannot be rebuilt.
// They are used as is unless a CA bundle is configured, in which case the SDK
// default client is used instead.
func awsHTTPClient(httpClient *nethttp.Client, logger *logging.Logger) awsconfig.HTTPClient {
	if httpClient == nil {
		return nil
	}

	rt := httpClient.Transport
	if rt == nil {
		rt = nethttp.DefaultTransport
	}
	base, ok := rt.(*nethttp.Transport)
	if !ok {
		if os.Getenv("AWS_CA_BUNDLE") != "" {
			logger.Warn().Msg("AWS_CA_BUNDLE is set; S3 requests bypass the configured proxy")
			return nil
		}
		return httpClient
	}

	return awshttp.NewBuildableClient().
		WithTimeout(httpClient.Timeout).
		WithTransportOptions(func(tr *nethttp.Transport) {
			tr.Proxy = base.Proxy
			tr.DialContext = base.DialContext
			tr.TLSClientConfig = base.TLSClientConfig.Clone()
			tr.TLSHandshakeTimeout = base.TLSHandshakeTimeout
			tr.IdleConnTimeout = base.IdleConnTimeout
			tr.ExpectContinueTimeout = base.ExpectContinueTimeout
			tr.MaxIdleConns = base.MaxIdleConns
			tr.MaxIdleConnsPerHost = base.MaxIdleConnsPerHost
			tr.ForceAttemptHTTP2 = base.ForceAttemptHTTP2
		})
}

// Save uploads data as prefix/name. Existing objects are replaced.
func (s *S3) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := path.Join(s.prefix, sanitize.SanitizeFileName(name, constants.DefaultResultFileName))
	if contentType == "" {
		contentType = constants.ResultContentType
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Debug().Str("location", location).Int("bytes", len(data)).Msg("result uploaded")
	return location, nil
}
