// Package handlers implements the internal code handlers (C5): the subset
// of M-codes, plus the echo and abort keywords, that the execution core
// answers itself instead of forwarding to firmware, per §6. G- and T-codes
// have no internal handler here.
package handlers

import (
	"context"
	"io"
	"os"

	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/macro"
	"github.com/joeycumines/mctl/objectmodel"
)

// FileOpener abstracts macro-file source opening so tests can substitute
// an in-memory filesystem without touching os.
type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

type osOpener struct{}

func (osOpener) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

// Context bundles the collaborators an internal handler needs. It is
// constructed once by the daemon and passed to Dispatch for every code
// classified for internal processing.
type Context struct {
	Directories Directories
	Store       *objectmodel.Store
	Macros      *macro.Arena
	Opener      FileOpener

	// RelativeExtrusion is set by M82/M83, consulted by the pipeline's
	// extrusion-distance accounting (outside this module's scope, but the
	// flag itself is this handler's to own).
	RelativeExtrusion bool
}

// NewContext builds a Context with OS-backed file access.
func NewContext(dirs Directories, store *objectmodel.Store, macros *macro.Arena) *Context {
	return &Context{Directories: dirs, Store: store, Macros: macros, Opener: osOpener{}}
}

// Handler is the signature every internal handler implements.
type Handler func(ctx context.Context, hc *Context, c *code.Code) (*code.CodeResult, error)

// Dispatch routes c to its internal handler by Type/Major, returning
// (nil, nil) if c has no internal handler (the caller should then forward
// it to firmware).
func Dispatch(ctx context.Context, hc *Context, c *code.Code) (*code.CodeResult, error) {
	switch c.Type {
	case code.MCode:
		return dispatchM(ctx, hc, c)
	case code.KeywordCode:
		return dispatchKeyword(ctx, hc, c)
	default:
		return nil, nil
	}
}

func major(c *code.Code) int32 {
	if c.Major == nil {
		return -1
	}
	return *c.Major
}

func param(c *code.Code, letter byte) (code.Parameter, bool) {
	return c.Param(letter)
}

func unnamed(c *code.Code) (code.Parameter, bool) {
	return c.Unnamed()
}

func success(msg string) *code.CodeResult {
	if msg == "" {
		return code.NewResult()
	}
	return code.NewResult().Add(code.Success, msg)
}

func fail(msg string) *code.CodeResult {
	return code.NewResult().Add(code.Error, msg)
}

func jsonResult(body []byte) *code.CodeResult {
	return code.NewResult().Add(code.Success, string(body))
}
