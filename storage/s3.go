package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"recipe-hand/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageStore speichert hochgeladene Rezeptbilder und liefert deren Link.
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Object beschreibt einen Eintrag im Bucket.
type Object struct {
	Key          string
	LastModified time.Time
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// Bucket kapselt Upload, Auflistung und Löschen in einem Bucket.
type Bucket struct {
	Client    *s3.Client
	Name      string
	PublicURL string
}

// NewBucket erstellt einen Bucket. Ohne PublicURL werden Links aus dem
// Endpunkt gebildet.
func NewBucket(client *s3.Client, cfg config.S3Config) *Bucket {
	base := cfg.PublicURL
	if base == "" {
		base = cfg.Endpoint
	}
	return &Bucket{Client: client, Name: cfg.Bucket, PublicURL: strings.TrimRight(base, "/")}
}

// Upload lädt eine Datei ins S3 hoch und gibt den Link zurück.
func (b *Bucket) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.Name),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return b.ObjectURL(key), nil
}

func (b *Bucket) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", b.PublicURL, b.Name, strings.TrimLeft(key, "/"))
}

// List liefert alle Objekte mit dem Präfix, neueste zuerst.
func (b *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(b.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Name),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}
	SortNewestFirst(objects)
	return objects, nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.Name),
		Key:    aws.String(key),
	})
	return err
}

func SortNewestFirst(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
}

// Expired gibt die Objekte zurück, die über die ersten keep hinausgehen.
// objects muss neueste zuerst sortiert sein.
func Expired(objects []Object, keep int) []Object {
	if keep < 0 {
		keep = 0
	}
	if len(objects) <= keep {
		return nil
	}
	return objects[keep:]
}
