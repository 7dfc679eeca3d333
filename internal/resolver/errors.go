package resolver

import "fmt"

// UnknownSourceError reports a tagged token whose prefix matches no source.
type UnknownSourceError struct {
	Prefix string
	Token  string
	Line   int
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("line %d: unknown source prefix %q in %s", e.Line, e.Prefix, e.Token)
}

// TokenError reports a token whose value could not be resolved. Err is
// usually a *source.LookupError.
type TokenError struct {
	Token string
	Line  int
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("line %d: resolve %s: %v", e.Line, e.Token, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// SkipReason explains why a file was not processed.
type SkipReason int

const (
	// NoTemplateSuffix marks a tagged-mode file without the .fmtcf suffix.
	NoTemplateSuffix SkipReason = iota + 1
	// Binary marks a file that does not look like text.
	Binary
)

func (r SkipReason) String() string {
	switch r {
	case NoTemplateSuffix:
		return "missing " + TemplateSuffix + " suffix"
	case Binary:
		return "binary file"
	}
	return "unknown"
}

// SkipError is the non-fatal outcome for a file that was left alone.
type SkipError struct {
	Path   string
	Reason SkipReason
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Path, e.Reason)
}

// FileError attaches the file path to a fatal resolution error.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
