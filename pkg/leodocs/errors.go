package leodocs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors. Every fatal render error wraps exactly one of them, so
// callers can classify failures with errors.Is.
var (
	// ErrTemplateNotFound means the store could not resolve the requested template.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrMalformedTemplate means tag syntax or section nesting is invalid.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrMissingAsset means an image tag has no bound asset.
	ErrMissingAsset = errors.New("missing image asset")
	// ErrInvalidAsset means an image binding could not be turned into an embeddable image.
	ErrInvalidAsset = errors.New("invalid image asset")
)

// TemplateError represents an error in the template structure or syntax.
type TemplateError struct {
	// Part is the package part the tag was found in.
	Part string
	// Tag is the tag as written, delimiters included.
	Tag string
	// Offset is the position of the tag within the part's text content.
	Offset  int
	Message string
}

func (e *TemplateError) Error() string {
	var b strings.Builder
	b.WriteString("template error")
	if e.Part != "" {
		fmt.Fprintf(&b, " in %s", e.Part)
	}
	if e.Tag != "" {
		fmt.Fprintf(&b, " at %q (offset %d)", e.Tag, e.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap makes errors.Is(err, ErrMalformedTemplate) hold.
func (e *TemplateError) Unwrap() error {
	return ErrMalformedTemplate
}

// NewTemplateError creates a new template error with position information.
func NewTemplateError(part, tag string, offset int, message string) error {
	return &TemplateError{Part: part, Tag: tag, Offset: offset, Message: message}
}

// AssetError represents a problem with the image bound to an image tag.
type AssetError struct {
	Name string
	// Kind is ErrMissingAsset or ErrInvalidAsset.
	Kind  error
	Cause error
}

func (e *AssetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v %q: %v", e.Kind, e.Name, e.Cause)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Name)
}

func (e *AssetError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func missingAsset(name string) error {
	return &AssetError{Name: name, Kind: ErrMissingAsset}
}

func invalidAsset(name string, cause error) error {
	return &AssetError{Name: name, Kind: ErrInvalidAsset, Cause: cause}
}

// DocumentError represents an error during package operations.
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error.
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{Operation: operation, Path: path, Cause: cause}
}

// MultiError collects multiple errors.
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector.
func NewMultiError() *MultiError {
	return &MultiError{}
}

// Add adds an error to the collection, ignoring nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors.
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors.
func (m *MultiError) Errors() []error {
	return append([]error(nil), m.errors...)
}

// Err returns nil when empty, the single error when there is one, and m otherwise.
func (m *MultiError) Err() error {
	switch len(m.errors) {
	case 0:
		return nil
	case 1:
		return m.errors[0]
	default:
		return m
	}
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	parts := []string{fmt.Sprintf("%d errors occurred:", len(m.errors))}
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

func (m *MultiError) Unwrap() []error {
	return m.errors
}

// ContextError adds context to an existing error.
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context.
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{Operation: operation, Context: context, Cause: err}
}

// RecoverError converts a panic recovery value to an error.
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// ErrorClass maps an error to a short, stable label for metrics and status codes.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, ErrMalformedTemplate):
		return "malformed_template"
	case errors.Is(err, ErrMissingAsset):
		return "missing_asset"
	case errors.Is(err, ErrInvalidAsset):
		return "invalid_asset"
	default:
		return "error"
	}
}

// IsTemplateError checks if an error is or wraps a template error.
func IsTemplateError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}

// IsDocumentError checks if an error is or wraps a document error.
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}
