// Package images loads the per-document image catalogs produced during
// document processing: the mapping from image names to indexed descriptions
// and the mapping from image names to uploaded image URLs.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"doctutor/internal/contextutil"
)

const (
	contextFile = "image_context.json"
	urlsFile    = "image_urls.json"
)

// Catalog is the merged image lookup for one request's documents.
type Catalog struct {
	// DescriptionToURL maps every indexed image description to the image's
	// canonical URL. Retrieval hits on a description are resolved through this
	// map so images are scored by URL from that point on.
	DescriptionToURL map[string]string
	// URLToDescriptions is the reverse mapping, holding the full set of
	// descriptions indexed for each image URL.
	URLToDescriptions map[string][]string
}

// Load reads and merges the image catalogs from the given markdown
// directories (one per document). A missing catalog file is replaced by an
// empty one on disk so later runs see a consistent layout; an image whose URL
// is unknown is logged and skipped.
func Load(ctx context.Context, markdownDirs []string) (*Catalog, error) {
	logger := contextutil.LoggerFromContext(ctx)

	catalog := &Catalog{
		DescriptionToURL:  make(map[string]string),
		URLToDescriptions: make(map[string][]string),
	}

	for _, dir := range markdownDirs {
		var imageContext map[string][]string
		if err := loadOrInit(filepath.Join(dir, contextFile), &imageContext, map[string][]string{}); err != nil {
			return nil, fmt.Errorf("failed to load image context: %w", err)
		}

		var imageURLs map[string]string
		if err := loadOrInit(filepath.Join(dir, urlsFile), &imageURLs, map[string]string{}); err != nil {
			return nil, fmt.Errorf("failed to load image urls: %w", err)
		}

		for name, descriptions := range imageContext {
			url, ok := imageURLs[name]
			if !ok {
				logger.WarnContext(ctx, "Image URL not found", "image", name, "dir", dir)
				continue
			}
			for _, desc := range descriptions {
				catalog.DescriptionToURL[desc] = url
				catalog.URLToDescriptions[url] = append(catalog.URLToDescriptions[url], desc)
			}
		}
	}

	return catalog, nil
}

// Resolve maps a source identifier to its canonical image URL if the
// identifier is a known image description; otherwise it returns the
// identifier unchanged.
func (c *Catalog) Resolve(source string) string {
	if url, ok := c.DescriptionToURL[source]; ok {
		return url
	}
	return source
}

// Descriptions returns all indexed descriptions for an image URL.
func (c *Catalog) Descriptions(url string) []string {
	return c.URLToDescriptions[url]
}

// loadOrInit decodes the JSON file at path into out. If the file does not
// exist it writes defaultValue there as a recovery default and decodes that.
func loadOrInit(path string, out any, defaultValue any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = json.Marshal(defaultValue)
		if err != nil {
			return fmt.Errorf("failed to marshal default: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write recovery default: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
