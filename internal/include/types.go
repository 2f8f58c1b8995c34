package include

import "fmt"

type ErrorKind int

const (
	ErrorFileNotFound ErrorKind = iota
	ErrorCycleDetected
	ErrorParseError
	ErrorFileTooLarge
	ErrorDepthExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorFileNotFound:
		return "file not found"
	case ErrorCycleDetected:
		return "include cycle"
	case ErrorParseError:
		return "parse error"
	case ErrorFileTooLarge:
		return "file too large"
	case ErrorDepthExceeded:
		return "include depth exceeded"
	default:
		return "unknown"
	}
}

// LoadError describes an include that could not be followed. Path is the
// file the problem is about; Offset points at the include directive in the
// including file, or is -1.
type LoadError struct {
	Kind    ErrorKind
	Path    string
	Message string
	Offset  int
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

type Limits struct {
	MaxFileSizeBytes int64
	MaxIncludeDepth  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSizeBytes: 10 * 1024 * 1024,
		MaxIncludeDepth:  50,
	}
}

// Include is one include directive of a journal.
type Include struct {
	Path   string
	Offset int
}
