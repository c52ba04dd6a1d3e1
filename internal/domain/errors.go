package domain

import "fmt"

// ErrorKind classifies pipeline errors by the stage that produced them.
type ErrorKind string

const (
	ErrorKindScan       ErrorKind = "scan"
	ErrorKindPath       ErrorKind = "path"
	ErrorKindDecode     ErrorKind = "decode"
	ErrorKindPDFInfo    ErrorKind = "pdf_info"
	ErrorKindPDFRender  ErrorKind = "pdf_render"
	ErrorKindPreprocess ErrorKind = "preprocess"
	ErrorKindOCR        ErrorKind = "ocr"
	ErrorKindOutput     ErrorKind = "output"
	ErrorKindIndex      ErrorKind = "index"
	ErrorKindConfig     ErrorKind = "config"
)

// PipelineError is a typed error with an optional wrapped cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError creates a new pipeline error.
func NewError(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ErrorKindOf returns the kind of err if it is a PipelineError, or an empty
// kind otherwise.
func ErrorKindOf(err error) ErrorKind {
	if pe, ok := err.(*PipelineError); ok {
		return pe.Kind
	}
	return ""
}

// Common error constructors
func ScanError(message string, err error) *PipelineError {
	return NewError(ErrorKindScan, message, err)
}

func PathError(message string, err error) *PipelineError {
	return NewError(ErrorKindPath, message, err)
}

func DecodeError(message string, err error) *PipelineError {
	return NewError(ErrorKindDecode, message, err)
}

func PDFInfoError(message string, err error) *PipelineError {
	return NewError(ErrorKindPDFInfo, message, err)
}

func PDFRenderError(message string, err error) *PipelineError {
	return NewError(ErrorKindPDFRender, message, err)
}

func PreprocessError(message string, err error) *PipelineError {
	return NewError(ErrorKindPreprocess, message, err)
}

func OCRError(message string, err error) *PipelineError {
	return NewError(ErrorKindOCR, message, err)
}

func OutputError(message string, err error) *PipelineError {
	return NewError(ErrorKindOutput, message, err)
}

func IndexError(message string, err error) *PipelineError {
	return NewError(ErrorKindIndex, message, err)
}

func ConfigError(message string, err error) *PipelineError {
	return NewError(ErrorKindConfig, message, err)
}
