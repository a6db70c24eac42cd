// Package drive_tools exposes the document store as MCP tools.
//
// Read tools: files_list, files_get, files_download.
// Write tools, left out in read-only mode: files_create_folder,
// files_upload, files_delete, files_share and reconcile_folder.
//
// reconcile_folder runs the reconciliation engine against a local
// directory on the machine running the server. It uploads local files the
// folder is missing and reports remote-newer conflicts, and with
// download=true it also fetches remote-only files into the directory.
package drive_tools
