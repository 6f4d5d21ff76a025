package export

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectImagesInlinesReferencedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oil.png"), []byte("png-bytes"), 0o644))

	e := NewExporter(slog.Default(), nil, Options{ImageDir: dir, IncludeImages: true})

	tables := map[string][]row{
		"products": {
			{"id": int64(1), "image_path": "oil.png"},
			{"id": int64(2), "image_path": "missing.png"},
			{"id": int64(3), "image_path": nil},
		},
		"motorcycles": {
			{"id": int64(1), "image_path": "oil.png"},
		},
	}

	images, err := e.collectImages(tables)
	require.NoError(t, err)

	// One file inlined once; the missing file is skipped, not fatal.
	require.Len(t, images, 1)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), images["oil.png"])
}
