package generation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"promptreel/internal/services"
)

// ValidationError describes a request rejected at the boundary, before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ErrorKind implements services.ErrorClassifier.
func (e *ValidationError) ErrorKind() string { return "validation" }

// Is lets errors.Is match services.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == services.ErrValidation
}

// NormalizePrompt trims surrounding whitespace and applies Unicode NFC
// normalization so composed and decomposed input count the same.
func NormalizePrompt(prompt string) string {
	return norm.NFC.String(strings.TrimSpace(prompt))
}

// PromptLength returns the character count of the normalized prompt.
func PromptLength(prompt string) int {
	return utf8.RuneCountInString(NormalizePrompt(prompt))
}

// ValidatePrompt rejects empty prompts and prompts longer than
// MaxPromptLength characters.
func ValidatePrompt(prompt string) error {
	length := PromptLength(prompt)
	if length == 0 {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if length > MaxPromptLength {
		return &ValidationError{
			Field:   "prompt",
			Message: fmt.Sprintf("prompt must be at most %d characters (got %d)", MaxPromptLength, length),
		}
	}
	return nil
}

// Validate checks the enumerated settings. Style is free-form.
func (c Config) Validate() error {
	if !slices.Contains(allowedDurations, c.Duration) {
		return &ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be one of %s seconds (got %d)", joinInts(allowedDurations), c.Duration),
		}
	}
	if !slices.Contains(allowedAspectRatios, c.AspectRatio) {
		return &ValidationError{
			Field:   "aspectRatio",
			Message: fmt.Sprintf("aspect ratio must be one of %s (got %q)", strings.Join(allowedAspectRatios, ", "), c.AspectRatio),
		}
	}
	if !slices.Contains(allowedQualities, c.Quality) {
		return &ValidationError{
			Field:   "quality",
			Message: fmt.Sprintf("quality must be one of %s (got %q)", strings.Join(allowedQualities, ", "), c.Quality),
		}
	}
	return nil
}

// Validate checks a prompt and its settings together. cfg should already be
// normalized.
func Validate(prompt string, cfg Config) error {
	if err := ValidatePrompt(prompt); err != nil {
		return err
	}
	return cfg.Validate()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
