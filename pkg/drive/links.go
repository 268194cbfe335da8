// Package drive builds Google Drive URLs for library items. Items store only
// the Drive file or folder ID; the full URLs are derived on demand.
package drive

import (
	"fmt"

	"github.com/devopshub/gatehouse/pkg/content"
)

const baseURL = "https://drive.google.com"

// PreviewURL returns the embeddable player URL for a file
func PreviewURL(fileID string) string {
	return fmt.Sprintf("%s/file/d/%s/preview", baseURL, fileID)
}

// ViewURL returns the standard viewer URL for a file
func ViewURL(fileID string) string {
	return fmt.Sprintf("%s/file/d/%s/view", baseURL, fileID)
}

// FolderURL returns the folder browsing URL
func FolderURL(folderID string) string {
	return fmt.Sprintf("%s/drive/folders/%s", baseURL, folderID)
}

// Links carries every URL a client needs to open an item
type Links struct {
	Preview string `json:"preview_url,omitempty"`
	View    string `json:"view_url,omitempty"`
	Folder  string `json:"folder_url,omitempty"`
	Open    string `json:"open_url"`
}

// LinksFor derives the URL set for an item. Videos open in the embedded
// player, documents in the viewer, folders in the Drive folder view.
func LinksFor(item content.Content) Links {
	switch item.Type {
	case content.TypeFolder:
		folder := FolderURL(item.DriveFileID)
		return Links{Folder: folder, Open: folder}
	case content.TypeDocument:
		view := ViewURL(item.DriveFileID)
		return Links{View: view, Open: view}
	default:
		preview := PreviewURL(item.DriveFileID)
		return Links{
			Preview: preview,
			View:    ViewURL(item.DriveFileID),
			Open:    preview,
		}
	}
}
