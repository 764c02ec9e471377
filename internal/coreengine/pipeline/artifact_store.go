package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/objectstore"
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key         string
	Size        int64
	ContentType string
}

// ArtifactStoreAdapter uploads generated images to the object store.
type ArtifactStoreAdapter struct {
	store      objectstore.Store
	httpClient *http.Client
	log        *slog.Logger
}

// NewArtifactStoreAdapter uses http.DefaultClient for remote downloads
// when httpClient is nil.
func NewArtifactStoreAdapter(store objectstore.Store, httpClient *http.Client, logger *slog.Logger) *ArtifactStoreAdapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactStoreAdapter{
		store:      store,
		httpClient: httpClient,
		log:        logger.With("component", "pipeline.artifactstore"),
	}
}

// Upload stores the image behind ref under filename, replacing any object
// with the same key. Remote images are first downloaded to a temporary
// file, which is removed on every path.
func (a *ArtifactStoreAdapter) Upload(ctx context.Context, ref ImageReference, filename string) (UploadResult, error) {
	if strings.TrimSpace(string(ref)) == "" {
		return UploadResult{}, inputMissing(StatePersisting, "no image to store")
	}
	if strings.TrimSpace(filename) == "" {
		return UploadResult{}, inputMissing(StatePersisting, "no filename for the image")
	}
	if a.store == nil {
		return UploadResult{}, failed(KindStorageFailed, StatePersisting, objectstore.ErrNotInitialized)
	}

	var (
		result UploadResult
		err    error
	)
	if ref.IsRemote() {
		result, err = a.uploadRemote(ctx, string(ref), filename)
	} else {
		result, err = a.uploadLocal(ctx, string(ref), filename)
	}
	if err != nil {
		return UploadResult{}, failed(KindStorageFailed, StatePersisting, err)
	}
	a.log.Info("image stored", "key", result.Key, "bytes", result.Size, "content_type", result.ContentType)
	return result, nil
}

func (a *ArtifactStoreAdapter) uploadRemote(ctx context.Context, url, filename string) (UploadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to build image download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, fmt.Errorf("image download returned status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "pipeline-image-*"+filepath.Ext(filename))
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to create temporary image file: %w", err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			a.log.Warn("failed to remove temporary image file", "path", tmp.Name(), "error", rmErr)
		}
	}()

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to save downloaded image: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return UploadResult{}, fmt.Errorf("failed to rewind downloaded image: %w", err)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = contentTypeFor(filename)
	}
	if err := a.store.PutObject(ctx, filename, tmp, size, contentType); err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Key: filename, Size: size, ContentType: contentType}, nil
}

func (a *ArtifactStoreAdapter) uploadLocal(ctx context.Context, path, filename string) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to open image '%s': %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to stat image '%s': %w", path, err)
	}

	contentType := contentTypeFor(path)
	if err := a.store.PutObject(ctx, filename, f, info.Size(), contentType); err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Key: filename, Size: info.Size(), ContentType: contentType}, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
