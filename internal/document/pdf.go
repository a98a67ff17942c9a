package document

import (
	"bytes"
	"fmt"
	"io"

	"hrportal/internal/errors"

	"github.com/dslipak/pdf"
)

// PDFMagic is the header every PDF file starts with
const PDFMagic = "%PDF-"

// HasPDFHeader reports whether data starts with the PDF magic bytes
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte(PDFMagic))
}

// ExtractPDFText returns the plain text of every page, concatenated with no
// separator. Pages without content are skipped.
func ExtractPDFText(r io.ReaderAt, size int64) (text string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = errors.NewIOError(errors.ErrCodePDFExtractionFailed,
				"Could not read text from the PDF", fmt.Errorf("pdf parser panic: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodePDFExtractionFailed,
			"Could not open the PDF", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodePDFExtractionFailed,
			"Could not read text from the PDF", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", errors.NewIOError(errors.ErrCodePDFExtractionFailed,
			"Could not read text from the PDF", err)
	}

	return buf.String(), nil
}

// ExtractPDFBytes is ExtractPDFText for an in-memory document
func ExtractPDFBytes(data []byte) (string, error) {
	if !HasPDFHeader(data) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"The uploaded file is not a PDF", nil)
	}
	return ExtractPDFText(bytes.NewReader(data), int64(len(data)))
}
