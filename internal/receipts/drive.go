package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"

	"feeledger/internal/store"
)

// DriveUploader stores receipt files in a Google Drive folder shared with the
// service account. The returned reference is the file's webViewLink.
type DriveUploader struct {
	svc      *gdrive.Service
	folderID string
}

var _ store.ReceiptUploader = (*DriveUploader)(nil)

// NewDriveUploader authenticates with the same service-account credentials the
// audit writer uses.
func NewDriveUploader(ctx context.Context, folderID string) (*DriveUploader, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, errors.New("missing drive folder id")
	}

	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	svc, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveUploader{svc: svc, folderID: folderID}, nil
}

func serviceAccountCredentials() ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Upload creates the file inside the configured folder and returns its view
// link.
func (u *DriveUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	meta := &gdrive.File{
		Name:    filename,
		Parents: []string{u.folderID},
	}

	file, err := u.svc.Files.Create(meta).
		Media(content).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if file.WebViewLink != "" {
		return file.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + file.Id + "/view", nil
}
