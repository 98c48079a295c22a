package rag

import (
	"context"
	"sort"
	"strings"

	"doctutor/internal/contextutil"
	"doctutor/internal/images"
	"doctutor/internal/pdf"
)

// Refiner filters raw attribution candidates down to verified, relevant
// sources. Image candidates are judged by the model; text candidates must be
// locatable in one of the documents.
type Refiner struct {
	completer StructuredCompleter
	openDoc   func(path string) (*pdf.Document, error)
	opts      Options
}

// NewRefiner builds a Refiner that opens documents from disk.
func NewRefiner(completer StructuredCompleter, opts Options) *Refiner {
	return &Refiner{completer: completer, openDoc: pdf.Open, opts: opts}
}

// Refine returns the surviving subset of sources with refined scores. A judge
// failure drops only the affected image; a document that cannot be opened is
// skipped for verification. Refine never fails outright.
func (r *Refiner) Refine(ctx context.Context, question string, sources map[string]float64, filePaths []string, catalog *images.Catalog) map[string]float64 {
	imageScores := make(map[string]float64)
	textScores := make(map[string]float64)
	for key, score := range sources {
		if strings.HasPrefix(key, r.opts.ImageURLPrefix) {
			imageScores[key] = score
		} else {
			textScores[key] = score
		}
	}

	keptImages := r.refineImages(ctx, question, imageScores, catalog)
	keptText := r.verifyText(ctx, textScores, filePaths)

	merged := make(map[string]float64, len(keptImages)+len(keptText))
	for key, score := range keptImages {
		merged[key] = score
	}
	for key, score := range keptText {
		merged[key] = score
	}
	return r.truncate(merged)
}

// refineImages judges each image's relevance, averages the model's score with
// the retrieval score, and keeps relevant images above the floor that are
// within 90% of the best image score.
func (r *Refiner) refineImages(ctx context.Context, question string, imageScores map[string]float64, catalog *images.Catalog) map[string]float64 {
	logger := contextutil.LoggerFromContext(ctx)

	combined := make(map[string]float64)
	for url, vectorScore := range imageScores {
		descriptions := catalog.Descriptions(url)
		if len(descriptions) == 0 {
			descriptions = []string{url}
		}

		judgment, err := judgeImage(ctx, r.completer, question, descriptions)
		if err != nil {
			logger.WarnContext(ctx, "image relevance judgment failed, dropping image", "url", url, "error", err)
			continue
		}

		score := (vectorScore + judgment.RelevanceScore) / 2
		if !judgment.IsRelevant || score <= r.opts.RelevanceFloor {
			logger.DebugContext(ctx, "image filtered out",
				"url", url, "relevant", judgment.IsRelevant, "score", score)
			continue
		}
		combined[url] = score
	}

	if len(combined) == 0 {
		return combined
	}

	best := 0.0
	for _, score := range combined {
		if score > best {
			best = score
		}
	}

	kept := make(map[string]float64, len(combined))
	for url, score := range combined {
		if score >= 0.9*best {
			kept[url] = score
		}
	}
	return kept
}

// verifyText keeps only text sources whose content can be located in one of
// the documents. Each document is opened at most once per call.
func (r *Refiner) verifyText(ctx context.Context, textScores map[string]float64, filePaths []string) map[string]float64 {
	logger := contextutil.LoggerFromContext(ctx)

	docs := make(map[string]*pdf.Document)
	openAll := func() []*pdf.Document {
		opened := make([]*pdf.Document, 0, len(filePaths))
		for _, path := range filePaths {
			doc, ok := docs[path]
			if !ok {
				var err error
				doc, err = r.openDoc(path)
				if err != nil {
					logger.WarnContext(ctx, "failed to open document for verification", "path", path, "error", err)
					docs[path] = nil
					continue
				}
				docs[path] = doc
			}
			if doc != nil {
				opened = append(opened, doc)
			}
		}
		return opened
	}

	kept := make(map[string]float64, len(textScores))
	for key, score := range textScores {
		for _, doc := range openAll() {
			if _, _, found := pdf.FindInDocument(doc, key); found {
				kept[key] = score
				break
			}
		}
	}
	return kept
}

// truncate ranks sources by score descending and keeps the top KeepFraction
// (at least one), capped at MaxSources. Ties rank alphabetically so output is
// deterministic.
func (r *Refiner) truncate(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	type entry struct {
		key   string
		score float64
	}
	ranked := make([]entry, 0, len(scores))
	for key, score := range scores {
		ranked = append(ranked, entry{key, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].key < ranked[j].key
	})

	keep := int(float64(len(ranked)) * r.opts.KeepFraction)
	if keep < 1 {
		keep = 1
	}
	if keep > r.opts.MaxSources {
		keep = r.opts.MaxSources
	}

	out := make(map[string]float64, keep)
	for _, e := range ranked[:keep] {
		out[e.key] = e.score
	}
	return out
}
