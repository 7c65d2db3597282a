package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Endpoint     string
	UsePathStyle bool
}

// S3Store writes through the S3 upload manager.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     Options
}

func NewS3Store(ctx context.Context, s3opts S3Options, opts Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3opts.Region),
	}
	if s3opts.AccessKey != "" && s3opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3opts.AccessKey, s3opts.SecretKey, ""),
		))
	}

	acfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if ep := strings.TrimSpace(s3opts.Endpoint); ep != "" {
			if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
				ep = "https://" + ep
			}
			if u, uerr := url.Parse(ep); uerr == nil {
				o.BaseEndpoint = aws.String(u.String())
			}
		}
		o.UsePathStyle = s3opts.UsePathStyle
	})

	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = fmt.Sprintf("https://s3.%s.amazonaws.com", s3opts.Region)
	}

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, objectPath string, r io.Reader) (PutResult, error) {
	body := &countingReader{r: r}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(objectPath),
		Body:        body,
		ContentType: aws.String(contentTypeFor(objectPath)),
	}
	if !s.opts.AllowOverwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return PutResult{}, errExists(objectPath)
		}
		return PutResult{}, errUpload(err)
	}

	return PutResult{Path: objectPath, URL: s.URL(objectPath), Size: body.n}, nil
}

func (s *S3Store) Get(ctx context.Context, objectPath string) ([]byte, error) {
	ok, err := s.Exists(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotFound(objectPath)
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errNotFound(objectPath)
		}
		return nil, errRead("storage.get", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errRead("storage.get", err)
	}
	return data, nil
}

func (s *S3Store) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(objectPath),
	})
	if err == nil {
		return true, nil
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, errRead("storage.exists", err)
}

func (s *S3Store) URL(objectPath string) string {
	return PublicURL(s.opts.PublicBaseURL, s.opts.Bucket, objectPath)
}

var _ Store = (*S3Store)(nil)
