package document

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"hrportal/internal/errors"
	"hrportal/internal/utils"
)

// ReadCandidateFile loads candidate text from disk. PDFs go through text
// extraction, anything else is read as text.
func ReadCandidateFile(path string, maxSize int64, logger *errors.Logger) (string, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Cannot use candidate file %s", path), err)
	}

	data, err := readLimited(path, maxSize)
	if err != nil {
		return "", err
	}

	if utils.IsPDFFile(path) || HasPDFHeader(data) {
		return ExtractPDFBytes(data)
	}

	if !utils.IsTextFile(path) && logger != nil {
		logger.Warn("Candidate file may not be a text file", "filename", path)
	}
	return string(data), nil
}

func readLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	defer func() { _ = f.Close() }()

	return readAllLimited(f, maxSize)
}

// ReadUpload reads a PDF upload from a form post and extracts its text
func ReadUpload(file multipart.File, header *multipart.FileHeader, maxSize int64) (string, error) {
	if header != nil && maxSize > 0 && header.Size > maxSize {
		return "", tooLarge(maxSize)
	}

	data, err := readAllLimited(file, maxSize)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"The uploaded file is empty", nil)
	}

	return ExtractPDFBytes(data)
}

func readAllLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			"Failed to read file content", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, tooLarge(maxSize)
	}
	return data, nil
}

func tooLarge(maxSize int64) error {
	return errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("File exceeds the %s upload limit", utils.FormatFileSize(maxSize)), nil)
}
