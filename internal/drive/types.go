package drive

import "time"

// FolderMimeType is the MIME type for Google Drive folders
const FolderMimeType = "application/vnd.google-apps.folder"

// RootFolderID is the Drive alias for the top level of My Drive.
const RootFolderID = "root"

// Share roles accepted by Share.
const (
	RoleReader = "reader"
	RoleWriter = "writer"
)

// FileInfo represents metadata about a file or folder in Google Drive
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders)
	Size int64 `json:"size,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modifiedTime"`

	// WebViewLink is a link for opening the file in a relevant Google editor or viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`

	// Shared indicates whether the file is shared
	Shared bool `json:"shared"`

	// Trashed indicates whether the file is in the trash
	Trashed bool `json:"trashed"`
}

// IsFolder reports whether the entry is a folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// Permission represents access permissions for a file
type Permission struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Domain       string `json:"domain,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// ListOptions contains options for listing files
type ListOptions struct {
	// FolderID scopes the listing to direct children of one folder.
	FolderID string

	// Query is an additional Drive search expression, e.g.
	// "mimeType='application/pdf'". It is ANDed with the folder scope.
	Query string

	// MaxResults is the page size (max: 1000)
	MaxResults int64

	// OrderBy specifies the sort order, e.g. "folder,modifiedTime desc,name"
	OrderBy string

	// PageToken is a token for retrieving the next page of results
	PageToken string

	// IncludeTrashed includes trashed files in results
	IncludeTrashed bool
}

// UploadOptions contains options for uploading a file
type UploadOptions struct {
	// ParentFolders are the IDs of parent folders where the file should be placed
	ParentFolders []string

	// Description is a short description of the file
	Description string

	// MimeType is the MIME type of the file. Drive detects it when empty.
	MimeType string

	// ModifiedTime sets the file's modification time instead of the upload time.
	ModifiedTime *time.Time
}

// ShareOptions grants a principal access to a file.
type ShareOptions struct {
	// Type is the grantee type: "user" (default), "group", "domain" or "anyone".
	Type string

	// Role is RoleReader or RoleWriter.
	Role string

	// EmailAddress is required for user and group grantees.
	EmailAddress string

	// Domain is required for domain grantees.
	Domain string

	// Notify sends the provider's notification email, with Message if set.
	Notify  bool
	Message string
}
