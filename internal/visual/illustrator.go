package visual

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"

	"glaspolitics/internal/core"
	"glaspolitics/internal/logger"
)

const (
	// genericScene is used when the model cannot produce a scene description.
	genericScene = "A wide photographic view of Leinster House in Dublin under an overcast sky, with the Irish tricolour flying above the entrance."

	// noTextInstruction is appended to every image prompt. Rendered text in
	// generated news imagery is reliably garbled.
	noTextInstruction = "NO WORDS OR NUMBERS IN THE IMAGE."
)

// SceneDescriber produces a one-sentence visual scene for an article.
// *llm.Client satisfies it.
type SceneDescriber interface {
	DescribeScene(ctx context.Context, article core.Article) (string, error)
}

// Options configures image synthesis.
type Options struct {
	Model     string
	Size      string
	Quality   string
	Style     string
	OutputDir string
}

// Service generates an illustration per top article. Every failure falls
// back rather than dropping the article: a top article always comes out the
// other side, at worst with its scraped image or no image at all.
type Service struct {
	describer SceneDescriber
	client    *ImageClient
	opts      Options
}

// NewService creates an illustration service.
func NewService(describer SceneDescriber, client *ImageClient, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = "dall-e-3"
	}
	if opts.Size == "" {
		opts.Size = "1024x1024"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join("output", "images")
	}
	return &Service{describer: describer, client: client, opts: opts}
}

// Illustrate fills SceneDescription, GeneratedImage, and ImageURL for one
// article. It never returns an error and never drops the article.
func (s *Service) Illustrate(ctx context.Context, article *core.Article) {
	scene, err := s.describer.DescribeScene(ctx, *article)
	if err != nil {
		logger.Warn("Scene description failed, using generic scene", "title", article.Title, "error", err.Error())
		scene = genericScene
	}
	article.SceneDescription = scene

	prompt := scene + " " + noTextInstruction

	resp, err := s.client.GenerateImage(ctx, s.opts.Model, prompt, s.opts.Size, s.opts.Quality, s.opts.Style)
	if err != nil || resp == nil || len(resp.Data) == 0 {
		logger.Warn("Image generation failed, falling back to scraped image", "title", article.Title)
		article.ImageURL = article.TopImage
		return
	}

	article.GeneratedImage = s.persistImage(ctx, article, resp.Data[0])
	if article.GeneratedImage != "" {
		article.ImageURL = article.GeneratedImage
	} else {
		article.ImageURL = article.TopImage
	}
}

// persistImage stores the generated image locally and returns its serving
// path. When the local save fails but a remote URL exists, the remote URL
// is returned instead.
func (s *Service) persistImage(ctx context.Context, article *core.Article, result ImageResult) string {
	switch {
	case result.URL != "":
		filename := imageFilename(article.ID, result.URL)
		outputPath := filepath.Join(s.opts.OutputDir, filename)
		if err := s.client.DownloadImage(ctx, result.URL, outputPath); err != nil {
			logger.Warn("Failed to save image locally, keeping remote URL", "title", article.Title, "error", err.Error())
			return result.URL
		}
		return "/images/" + filename

	case result.B64JSON != "":
		seed := result.B64JSON
		if len(seed) > 32 {
			seed = seed[:32]
		}
		filename := imageFilename(article.ID, seed)
		outputPath := filepath.Join(s.opts.OutputDir, filename)
		if err := s.client.SaveBase64Image(result.B64JSON, outputPath); err != nil {
			logger.Warn("Failed to save image locally", "title", article.Title, "error", err.Error())
			return ""
		}
		return "/images/" + filename
	}

	return ""
}

// imageFilename builds a stable filename from the article ID and a short
// hash of the image payload.
func imageFilename(articleID, seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))

	id := articleID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("article_%s_%04d.png", id, h.Sum32()%10000)
}
