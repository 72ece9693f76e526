package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"examflow/internal/models"
)

// DriveStore is the Google Drive implementation of the blob store: a folder of
// source images/PDFs, a staging folder for split PDF pages, and an export
// folder for spreadsheet artifacts.
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore creates a Drive client from a service account key file.
func NewDriveStore(ctx context.Context, credentialsFile string) (*DriveStore, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	return &DriveStore{svc: svc}, nil
}

// List enumerates images and PDFs in a folder. Ordering is left to the caller;
// Drive returns files in no useful order.
func (s *DriveStore) List(ctx context.Context, folderID string) ([]models.SourceItem, error) {
	query := fmt.Sprintf("'%s' in parents and (mimeType contains 'image/' or mimeType = 'application/pdf') and trashed = false", folderID)

	var items []models.SourceItem
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		r, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files in folder %s: %w", folderID, err)
		}
		for _, f := range r.Files {
			items = append(items, models.SourceItem{
				ID:   f.Id,
				Name: f.Name,
				Kind: models.KindOf(f.Name),
			})
		}
		if r.NextPageToken == "" {
			return items, nil
		}
		pageToken = r.NextPageToken
	}
}

// Fetch downloads a file's content by id.
func (s *DriveStore) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s body: %w", fileID, err)
	}
	return data, nil
}

// Upload creates a file in the given folder and returns its id.
func (s *DriveStore) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	f, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to folder %s: %w", name, folderID, err)
	}
	return f.Id, nil
}

// Delete removes a single file by id.
func (s *DriveStore) Delete(ctx context.Context, fileID string) error {
	if err := s.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}
	return nil
}
