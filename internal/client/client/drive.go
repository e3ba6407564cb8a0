package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

const fileFields googleapi.Field = "kind,id,name,mimeType,appProperties,trashed,version,size,parents"

// DriveClient implements Remote over the Drive v3 REST API.
type DriveClient struct {
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
}

// NewDriveClient returns a client for endpoint, or for the public Drive
// API when endpoint is empty. hc is the base transport; nil means
// http.DefaultClient.
func NewDriveClient(endpoint string, hc *http.Client) *DriveClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &DriveClient{httpClient: hc, endpoint: endpoint, now: time.Now}
}

func (c *DriveClient) service(ctx context.Context, auth AuthContext) (*drive.Service, error) {
	if !auth.Valid(c.now()) {
		return nil, ErrUnauthorized
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: auth.Token,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

func (c *DriveClient) FindOrCreateFolder(ctx context.Context, auth AuthContext, name string) (string, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return "", err
	}

	q := fmt.Sprintf("name = '%s' and 'root' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(name), models.FolderMimeType)
	list, err := svc.Files.List().
		Q(q).
		Corpora("user").
		Spaces("drive").
		Fields("files(id,name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", c.mapError(ctx, "find folder", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: models.FolderMimeType,
		Parents:  []string{"root"},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", c.mapError(ctx, "create folder", err)
	}
	return folder.Id, nil
}

func (c *DriveClient) ListFolder(ctx context.Context, auth AuthContext, folderID string) ([]models.RemoteFile, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	var (
		result    []models.RemoteFile
		pageToken string
	)
	for {
		call := svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents", escapeQuery(folderID))).
			Corpora("user").
			Spaces("drive").
			Fields("nextPageToken", "files("+fileFields+")").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, c.mapError(ctx, "list folder", err)
		}
		for _, f := range list.Files {
			if f.Id == "" {
				continue
			}
			result = append(result, toRemoteFile(f))
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return result, nil
		}
	}
}

func (c *DriveClient) GetFile(ctx context.Context, auth AuthContext, fileID string) (*models.RemoteFile, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	f, err := svc.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, c.mapError(ctx, "get "+fileID, err)
	}
	rf := toRemoteFile(f)
	return &rf, nil
}

func (c *DriveClient) GetContent(ctx context.Context, auth AuthContext, fileID string) ([]byte, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, c.mapError(ctx, "download "+fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, fileID, err)
	}
	return data, nil
}

func (c *DriveClient) CreateFile(ctx context.Context, auth AuthContext, file models.RemoteFile) (*models.RemoteFile, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	created, err := svc.Files.Create(&drive.File{
		Name:          file.Name,
		MimeType:      file.MimeType,
		Parents:       file.Parents,
		AppProperties: file.Attributes,
	}).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, c.mapError(ctx, "create file", err)
	}
	rf := toRemoteFile(created)
	return &rf, nil
}

func (c *DriveClient) UpdateMetadata(ctx context.Context, auth AuthContext, file models.RemoteFile) (*models.RemoteFile, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	updated, err := svc.Files.Update(file.ID, &drive.File{
		Name:          file.Name,
		MimeType:      file.MimeType,
		AppProperties: file.Attributes,
	}).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, c.mapError(ctx, "update metadata "+file.ID, err)
	}
	rf := toRemoteFile(updated)
	return &rf, nil
}

func (c *DriveClient) UpdateContent(ctx context.Context, auth AuthContext, fileID string, data []byte) (*models.RemoteFile, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	updated, err := svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(http.DetectContentType(data))).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.mapError(ctx, "update content "+fileID, err)
	}
	rf := toRemoteFile(updated)
	return &rf, nil
}

func (c *DriveClient) mapError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", ErrUnauthorized, op, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, op)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func toRemoteFile(f *drive.File) models.RemoteFile {
	return models.RemoteFile{
		ID:         f.Id,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Version:    f.Version,
		Trashed:    f.Trashed,
		Size:       f.Size,
		Attributes: f.AppProperties,
		Parents:    f.Parents,
	}
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
