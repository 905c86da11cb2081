// Package storage provisions content-drive folders and stores creator
// deliverables on S3-compatible object storage (MinIO in development).
// Folders are modeled as key prefixes with a .keep marker object, so
// provisioning is a cheap idempotent check-exists-or-create.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Folder identifies a provisioned drive folder.
type Folder struct {
	FolderID  string
	FolderURL string
}

// UploadResult describes one stored deliverable.
type UploadResult struct {
	Key        string
	Bucket     string
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
}

// DriveService manages client content folders on S3.
type DriveService struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	region    string
	publicURL string
}

// NewDriveService creates a drive service. AWS_S3_BUCKET is required;
// AWS_ENDPOINT_URL switches to path-style addressing for MinIO.
func NewDriveService() (*DriveService, error) {
	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET environment variable is required")
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpointURL := os.Getenv("AWS_ENDPOINT_URL")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		}
	})

	publicURL := endpointURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	} else {
		publicURL = strings.TrimRight(publicURL, "/") + "/" + bucket
	}

	return &DriveService{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		region:    region,
		publicURL: publicURL,
	}, nil
}

const folderMarker = ".keep"

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// slugify makes a name safe for use as a key segment.
func slugify(name string) string {
	slug := unsafePathChars.ReplaceAllString(strings.TrimSpace(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "unnamed"
	}
	return slug
}

func (d *DriveService) folderURL(folderID string) string {
	return fmt.Sprintf("%s/%s", d.publicURL, folderID)
}

// EnsureRawFolder idempotently provisions the RAW content folder under a
// client's root folder and returns its id. Calling it again for the same
// root returns the existing folder without touching storage.
func (d *DriveService) EnsureRawFolder(ctx context.Context, clientRootFolderID string) (string, error) {
	if clientRootFolderID == "" {
		return "", fmt.Errorf("client root folder id is required")
	}

	rawFolderID := fmt.Sprintf("%s/RAW", strings.TrimRight(clientRootFolderID, "/"))
	markerKey := fmt.Sprintf("%s/%s", rawFolderID, folderMarker)

	exists, err := d.objectExists(ctx, markerKey)
	if err != nil {
		return "", err
	}
	if exists {
		return rawFolderID, nil
	}

	if err := d.putMarker(ctx, markerKey); err != nil {
		return "", fmt.Errorf("failed to provision RAW folder: %w", err)
	}
	return rawFolderID, nil
}

// CreateCreatorFolder provisions the per-creator subfolder under the RAW
// folder and returns its id and browse URL. Existing folders are reused.
func (d *DriveService) CreateCreatorFolder(ctx context.Context, rawFolderID, creatorName, castingTitle string) (*Folder, error) {
	if rawFolderID == "" {
		return nil, fmt.Errorf("raw folder id is required")
	}

	folderID := fmt.Sprintf("%s/%s-%s", strings.TrimRight(rawFolderID, "/"), slugify(castingTitle), slugify(creatorName))
	markerKey := fmt.Sprintf("%s/%s", folderID, folderMarker)

	exists, err := d.objectExists(ctx, markerKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := d.putMarker(ctx, markerKey); err != nil {
			return nil, fmt.Errorf("failed to provision creator folder: %w", err)
		}
	}

	return &Folder{
		FolderID:  folderID,
		FolderURL: d.folderURL(folderID),
	}, nil
}

// UploadDeliverable stores one content file inside a creator folder.
func (d *DriveService) UploadDeliverable(ctx context.Context, file multipart.File, header *multipart.FileHeader, folderID string) (*UploadResult, error) {
	if folderID == "" {
		return nil, fmt.Errorf("folder id is required")
	}

	fileData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if seeker, ok := file.(io.Seeker); ok {
		seeker.Seek(0, io.SeekStart)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s-%s", strings.TrimRight(folderID, "/"), uuid.NewString()[:8], slugify(header.Filename))

	_, err = d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileData),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": header.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload deliverable: %w", err)
	}

	return &UploadResult{
		Key:        key,
		Bucket:     d.bucket,
		FileSize:   int64(len(fileData)),
		MimeType:   contentType,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// GeneratePresignedURL grants temporary access to one stored object.
func (d *DriveService) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(d.client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

// ListFolder lists the object keys under a folder, excluding markers.
func (d *DriveService) ListFolder(ctx context.Context, folderID string) ([]string, error) {
	prefix := strings.TrimRight(folderID, "/") + "/"
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list folder: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/"+folderMarker) {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (d *DriveService) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check folder existence: %w", err)
	}
	return true, nil
}

func (d *DriveService) putMarker(ctx context.Context, key string) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte{}),
		ContentType: aws.String("application/x-directory"),
	})
	return err
}
