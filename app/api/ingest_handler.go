package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"collegeseeker/loader"
	"collegeseeker/pipeline"
	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
)

// IngestHandler accepts documents over HTTP and feeds them into the
// ingestion pipeline: student profiles and course brochures, as uploaded
// PDFs or as links.
type IngestHandler struct {
	ingestor *pipeline.Ingestor
	web      *loader.WebLoader
	courses  *pipeline.CourseExtractor
	tempDir  string
}

func NewIngestHandler(ingestor *pipeline.Ingestor, web *loader.WebLoader, courses *pipeline.CourseExtractor) *IngestHandler {
	tempDir := os.Getenv("UPLOAD_TEMP_DIR")
	if tempDir == "" {
		tempDir = "temp"
	}
	os.MkdirAll(tempDir, 0755)

	return &IngestHandler{
		ingestor: ingestor,
		web:      web,
		courses:  courses,
		tempDir:  tempDir,
	}
}

func (h *IngestHandler) HandleProfileUpload(c *fiber.Ctx) error {
	return h.handlePDFUpload(c, types.DocStudentPDF)
}

func (h *IngestHandler) HandleCourseUpload(c *fiber.Ctx) error {
	return h.handlePDFUpload(c, types.DocCoursePDF)
}

func (h *IngestHandler) handlePDFUpload(c *fiber.Ctx, kind types.DocKind) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		return ErrInvalidFile("invalid file type, only PDF files are accepted")
	}

	path := filepath.Join(h.tempDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, path); err != nil {
		return err
	}
	defer os.Remove(path)
	fmt.Printf("[UPLOAD] File saved to: %s\n", path)

	text, err := loader.ExtractPDF(path)
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	result, err := h.ingestor.Ingest(c.Context(), title, kind, fileHeader.Filename, text)
	if err != nil {
		return err
	}

	if kind == types.DocCoursePDF {
		h.extractCourses(c.Context(), text, fileHeader.Filename)
	}
	return c.JSON(result)
}

// extractCourses is best effort: catalog rows are a bonus on top of the
// chunk ingestion, a failed extraction never fails the upload.
func (h *IngestHandler) extractCourses(ctx context.Context, text, source string) {
	if h.courses == nil {
		return
	}
	n, err := h.courses.ExtractAndSave(ctx, text, source)
	if err != nil {
		fmt.Printf("[COURSES] extraction failed for %s: %v\n", source, err)
		return
	}
	fmt.Printf("[COURSES] extracted %d course records from %s\n", n, source)
}

func (h *IngestHandler) HandleProfileLink(c *fiber.Ctx) error {
	return h.handleLink(c, types.DocStudentWeb)
}

func (h *IngestHandler) HandleCourseLink(c *fiber.Ctx) error {
	return h.handleLink(c, types.DocCourseWeb)
}

func (h *IngestHandler) handleLink(c *fiber.Ctx, kind types.DocKind) error {
	var params types.LinkParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	// An omitted max_depth keeps the injected loader and its configured
	// default depth.
	web := h.web
	if params.MaxDepth != nil && *params.MaxDepth != web.MaxDepth {
		web = loader.NewWebLoader(web.Timeout(), *params.MaxDepth)
	}

	pages, err := web.Load(c.Context(), params.Link)
	if err != nil {
		return err
	}

	total := 0
	for _, page := range pages {
		title := page.Title
		if title == "" {
			title = page.URL
		}
		result, err := h.ingestor.Ingest(c.Context(), title, kind, page.URL, page.Text)
		if err != nil {
			return err
		}
		total += result.ChunkCount

		if kind == types.DocCourseWeb {
			h.extractCourses(c.Context(), page.Text, page.URL)
		}
	}

	return c.JSON(types.IngestResult{
		Status:     "success",
		Message:    fmt.Sprintf("Processed %d pages into %d document chunks.", len(pages), total),
		ChunkCount: total,
	})
}
