package preflight

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"surgitrack/internal/config"
	"surgitrack/internal/services"
)

// CheckUpload applies the configured extension and size limits to a file
// about to be submitted. It is a no-op unless enforce_constraints is set.
// Frame rate is not inspected; the remote service validates it.
func CheckUpload(limits config.Upload, name string, size int64) error {
	if !limits.EnforceConstraints {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	if len(limits.AllowedExtensions) > 0 && !slices.Contains(limits.AllowedExtensions, ext) {
		return services.Wrap(services.ErrValidation, "upload", "preflight",
			fmt.Sprintf("unsupported file type %q (allowed: %s)", ext, strings.Join(limits.AllowedExtensions, ", ")), nil)
	}
	maxBytes := limits.MaxSizeBytes()
	if maxBytes > 0 && size > 0 && uint64(size) > maxBytes {
		return services.Wrap(services.ErrValidation, "upload", "preflight",
			fmt.Sprintf("file is %s, limit is %s", humanize.Bytes(uint64(size)), humanize.Bytes(maxBytes)), nil)
	}
	return nil
}
