package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"collegeseeker/model"
	"collegeseeker/store"
	"collegeseeker/types"
)

const extractInstruction = `You extract structured course records from college brochure text.
Return ONLY a JSON array, no prose, of objects with this exact shape:
[{"institute":"","course":"","degree":"","duration":"","fees":"","eligibility":""}]
Leave a field empty when the text does not state it. Skip offerings where you
cannot name at least the institute and the course.`

// CourseExtractor turns brochure text into structured course records and
// upserts them into the course catalog. Records are keyed by a deterministic
// slug so re-ingesting a brochure refreshes its rows instead of duplicating.
type CourseExtractor struct {
	logger *slog.Logger
	llm    model.GeneratorInterface
	store  store.DBStorer
}

func NewCourseExtractor(llm model.GeneratorInterface, storer store.DBStorer) *CourseExtractor {
	return &CourseExtractor{
		logger: slog.Default(),
		llm:    llm,
		store:  storer,
	}
}

// ExtractAndSave asks the model for the course list in one document's text
// and stores what it found. Returns the number of records saved.
func (e *CourseExtractor) ExtractAndSave(ctx context.Context, text, sourceURL string) (int, error) {
	body, err := retry(ctx, "extract courses", func() ([]byte, error) {
		return e.llm.Generate(ctx, extractInstruction, text)
	})
	if err != nil {
		return 0, err
	}

	raw, ok := extractJSONArray(body)
	if !ok {
		return 0, types.EmptyResponseError{Source: "course-extractor"}
	}

	var rows []struct {
		Institute   string `json:"institute"`
		Course      string `json:"course"`
		Degree      string `json:"degree"`
		Duration    string `json:"duration"`
		Fees        string `json:"fees"`
		Eligibility string `json:"eligibility"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, types.NewExternalServiceError("course-extractor",
			fmt.Errorf("malformed course list: %w", err))
	}

	now := time.Now().UTC()
	records := make([]types.CourseRecord, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Institute) == "" || strings.TrimSpace(r.Course) == "" {
			continue
		}
		records = append(records, types.CourseRecord{
			ID:          CourseSlug(r.Institute, r.Course),
			Institute:   strings.TrimSpace(r.Institute),
			Course:      strings.TrimSpace(r.Course),
			Degree:      strings.TrimSpace(r.Degree),
			Duration:    strings.TrimSpace(r.Duration),
			Fees:        strings.TrimSpace(r.Fees),
			Eligibility: strings.TrimSpace(r.Eligibility),
			SourceURL:   sourceURL,
			UpdatedAt:   now,
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := e.store.SaveCourses(ctx, records); err != nil {
		return 0, err
	}
	e.logger.Info("course records extracted", "source", sourceURL, "records", len(records))
	return len(records), nil
}

// extractJSONArray slices the first JSON array out of a model reply that may
// wrap it in prose or code fences.
func extractJSONArray(body []byte) ([]byte, bool) {
	start := bytes.IndexByte(body, '[')
	end := bytes.LastIndexByte(body, ']')
	if start == -1 || end <= start {
		return nil, false
	}
	return body[start : end+1], true
}

// CourseSlug derives the stable catalog id for one offering: lowercased
// institute and course with every non-alphanumeric run collapsed to a dash.
func CourseSlug(institute, course string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(institute + " " + course) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
