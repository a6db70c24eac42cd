// Package drive is the files adapter over the Google Drive API.
//
// It lists files (optionally scoped to a parent folder), reads metadata,
// creates folders, uploads content as a multipart request carrying both the
// JSON metadata and the media, downloads raw bytes, deletes files and shares
// them with a named principal as reader or writer.
//
// FileInfo.IsFolder derives the folder flag from the Drive folder MIME type;
// the reconciliation engine relies on it to keep folders out of download
// notifications.
//
// Example usage:
//
//	client, err := drive.New(ctx, executor.HTTPClient())
//	if err != nil {
//	    return err
//	}
//
//	// Upload a file into a folder
//	file, err := client.Upload(ctx, "mandate.pdf", bytes.NewReader(content), &drive.UploadOptions{
//	    ParentFolders: []string{folderID},
//	    MimeType:      "application/pdf",
//	})
//
//	// List everything in the folder, following pages
//	files, err := client.ListAll(ctx, folderID)
package drive
