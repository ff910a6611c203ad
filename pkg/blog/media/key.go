// Package media holds helpers shared by the cover image stores.
package media

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultFolder is the key prefix for uploaded cover images.
const DefaultFolder = "blog-uploads"

// DefaultContentType is used when an upload does not declare one.
const DefaultContentType = "application/octet-stream"

var fileNameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
	"#", "_",
	"%", "_",
)

// SanitizeFileName makes an uploaded file name safe to use as the last key segment.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	name = fileNameReplacer.Replace(strings.TrimSpace(name))
	if name == "" {
		return "upload"
	}
	return name
}

// ObjectKey returns a unique key for an upload:
// <folder>/<unix millis>-<8 hex chars>_<sanitized name>.
func ObjectKey(folder, fileName string, now time.Time) string {
	if folder == "" {
		folder = DefaultFolder
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s_%s", strings.Trim(folder, "/"), now.UnixMilli(), suffix, SanitizeFileName(fileName))
}

// JoinURL joins a URL prefix and an object key with a single slash.
func JoinURL(prefix, key string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(key, "/")
}

// ContentType returns ct or DefaultContentType when ct is blank.
func ContentType(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return DefaultContentType
	}
	return ct
}
