package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relstore/internal/ir"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes for schema loading and validation.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeNoTypes      = "E201" // No types declared
	ErrCodeBadKind      = "E202" // Unknown relationship kind
	ErrCodeNoTarget     = "E203" // Relationship target missing or unknown
	ErrCodeReservedName = "E204" // Relationship uses a reserved attribute name
	ErrCodeDuplicate    = "E205" // Duplicate type or namespace
)

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir compiles every type declared under `type:` in the CUE files of dir
// and validates the result. The returned Registry is nil when any error was
// found.
func LoadDir(dir string, mode LoadMode) (*Registry, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	return compileValue(value, mode)
}

// LoadString compiles schema source held in memory, e.g. embedded defaults
// or test fixtures.
func LoadString(src string, mode LoadMode) (*Registry, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename("schema.cue"))
	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), "schema")}
	}
	return compileValue(value, mode)
}

func compileValue(value cue.Value, mode LoadMode) (*Registry, []error) {
	typesVal := value.LookupPath(cue.ParsePath("type"))
	if !typesVal.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeNoTypes, Message: "no types declared under type:"}}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating types: %v", err)}}
	}

	var (
		errs  []error
		types []ir.TypeSchema
	)
	for iter.Next() {
		ts, err := CompileType(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "type."+iter.Label()))
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		types = append(types, *ts)
	}
	if len(types) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTypes, Message: "no types declared under type:"})
	}

	for _, verr := range Validate(types) {
		errs = append(errs, &LoadError{Code: verr.Code, Message: verr.Error()})
		if mode == LoadModeFailFast {
			return nil, errs
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return NewRegistry(types...), nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    mapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

func mapFieldToErrorCode(field string) string {
	switch field {
	case "kind":
		return ErrCodeBadKind
	case "target":
		return ErrCodeNoTarget
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
