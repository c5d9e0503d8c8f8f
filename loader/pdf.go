package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"collegeseeker/types"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractPDF validates a PDF and returns its plain text.
func ExtractPDF(path string) (string, error) {
	if err := pdfapi.ValidateFile(path, nil); err != nil {
		return "", types.NewValidationError(map[string]string{
			"file": fmt.Sprintf("not a valid PDF: %v", err),
		})
	}

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", types.NewValidationError(map[string]string{
			"file": "no text extracted from pdf",
		})
	}
	return text, nil
}
