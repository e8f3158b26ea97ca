package spaces

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ibooker/imgloader/internal/fetch"
)

// Provider fetches s3://bucket/key URLs from an S3 compatible object store, such as DigitalOcean Spaces
type Provider struct {
	spaces *s3.S3
}

// New returns a new Provider instance
func New(endpoint, region, accessKey, secretKey string, forcePathStyle bool) (*Provider, error) {
	if region == "" {
		// Needs to be us-east-1 for Spaces, or it'll fail
		region = "us-east-1"
	}

	spacesSession, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		spaces: s3.New(spacesSession),
	}, nil
}

// ParseURL splits an s3://bucket/key URL into its bucket and key
func ParseURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object url %q", rawURL)
	}

	return bucket, key, nil
}

// Fetch returns the object data for an s3:// URL
func (p *Provider) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	object := s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	output, err := p.spaces.GetObjectWithContext(ctx, &object)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fetch.ErrNotFound
		}

		return nil, err
	}
	defer output.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, output.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
