package handlers

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/wire"
)

func dispatchM(ctx context.Context, hc *Context, c *code.Code) (*code.CodeResult, error) {
	switch major(c) {
	case 0, 1:
		return handleM0M1(c), nil
	case 20:
		return handleM20(hc, c)
	case 23, 32:
		return handleM23M32(ctx, hc, c)
	case 24, 25, 226:
		return nil, nil // pause/resume state machine is a firmware/pipeline concern, not this handler
	case 26:
		return handleM26(c), nil
	case 27:
		return handleM27(c), nil
	case 28, 29:
		return nil, nil // capture-to-SD is a transport concern outside this module
	case 30:
		return handleM30(hc, c)
	case 36:
		return handleM36(hc, c)
	case 37:
		return handleM37(c), nil
	case 38:
		return handleM38(hc, c)
	case 39:
		return handleM39(hc, c)
	case 82:
		hc.RelativeExtrusion = false
		return success(""), nil
	case 83:
		// Open Question resolution (§9): M83 must set the relative
		// extrusion flag; a prior version of this handler left it false,
		// making every subsequent extrusion move absolute.
		hc.RelativeExtrusion = true
		return success(""), nil
	case 112:
		return success("emergency stop"), nil
	case 122:
		return handleM122(c), nil
	case 291:
		return handleM291(c), nil
	case 374, 375:
		return success(""), nil // height map load/save acknowledged here with an empty result; not forwarded to firmware
	case 470, 471:
		return handleM470M471(hc, c)
	case 500, 503, 505:
		return success(""), nil // config save/report/set-dir acknowledged here with an empty result; not forwarded to firmware
	case 550:
		return handleM550(hc, c), nil
	case 555:
		return handleM555(hc, c), nil
	case 701, 702, 703:
		return success(""), nil // filament load/unload/change acknowledged here; no filament orchestration is performed
	case 905:
		return success(""), nil // local-time diagnostics, no internal state to change
	case 929:
		return success(""), nil // event logging to SD acknowledged here; no log file is opened and the code is not forwarded
	case 997:
		return nil, nil // firmware update: forwarded to firmware unchanged; no IAP/firmware streaming happens in this module
	case 998:
		return fail("M998: not supported"), nil
	case 999:
		return success("reset"), nil
	default:
		return nil, nil
	}
}

// handleM0M1 answers M0/M1 with an empty (not merely successful) result.
// It does nothing else: no firmware flush, job lock or print-file change
// happens here.
func handleM0M1(c *code.Code) *code.CodeResult {
	return code.NewResult()
}

func handleM20(hc *Context, c *code.Code) (*code.CodeResult, error) {
	dirParam, _ := param(c, 'D')
	root := RootGCodes
	virtual := "/"
	if dirParam.Letter != 0 {
		virtual = dirParam.Raw
	} else if u, ok := unnamed(c); ok {
		virtual = u.Raw
	}
	physical, err := hc.Directories.Resolve(root, virtual)
	if err != nil {
		return fail(err.Error()), nil
	}
	entries, err := os.ReadDir(physical)
	if err != nil {
		return fail(fmt.Sprintf("M20: %s", err.Error())), nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	b := wire.NewBuilder().
		Str("dir", virtual).
		Raw("files", wire.StringArray(names))
	return jsonResult(b.Bytes()), nil
}

func handleM23M32(ctx context.Context, hc *Context, c *code.Code) (*code.CodeResult, error) {
	virtual, ok := unnamed(c)
	if !ok {
		return fail("M23/M32: missing filename"), nil
	}
	physical, err := hc.Directories.Resolve(RootGCodes, virtual.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	f, err := hc.Opener.Open(physical)
	if err != nil {
		return fail(fmt.Sprintf("M23/M32: %s", err.Error())), nil
	}
	hc.Macros.Start(physical, c.Channel, code.NoMacro, f)
	return success(""), nil
}

func handleM26(c *code.Code) *code.CodeResult {
	if p, ok := param(c, 'S'); ok {
		if _, err := p.Int(); err != nil {
			return fail("M26: S is not an integer")
		}
	}
	return success("")
}

func handleM27(c *code.Code) *code.CodeResult {
	return success("SD printing status not available outside an active print job")
}

// handleM30 implements §9's Open Question: on a successful delete, M30
// must return an empty result, not fall through to the generic
// Cancelled/Success path a naive implementation would take.
func handleM30(hc *Context, c *code.Code) (*code.CodeResult, error) {
	virtual, ok := unnamed(c)
	if !ok {
		return fail("M30: missing filename"), nil
	}
	physical, err := hc.Directories.Resolve(RootGCodes, virtual.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	if err := os.Remove(physical); err != nil {
		return fail(fmt.Sprintf("M30: %s", err.Error())), nil
	}
	return code.NewResult(), nil
}

func handleM36(hc *Context, c *code.Code) (*code.CodeResult, error) {
	virtual, ok := unnamed(c)
	if !ok {
		return fail("M36: missing filename"), nil
	}
	physical, err := hc.Directories.Resolve(RootGCodes, virtual.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	info, err := os.Stat(physical)
	if err != nil {
		return fail(fmt.Sprintf("M36: %s", err.Error())), nil
	}
	b := wire.NewBuilder().
		Str("fileName", path.Base(physical)).
		Int("size", info.Size())
	return jsonResult(b.Bytes()), nil
}

func handleM37(c *code.Code) *code.CodeResult {
	if p, ok := unnamed(c); ok && p.Raw != "" {
		return success(fmt.Sprintf("simulating print of %s", p.Raw))
	}
	return success("simulation mode off")
}

// handleM38 implements §9's Open Question: the hash must be computed over
// the resolved physical file (so two different virtual paths that happen
// to map to distinct physical files always get distinct hashes), not over
// the virtual path string itself.
func handleM38(hc *Context, c *code.Code) (*code.CodeResult, error) {
	virtual, ok := unnamed(c)
	if !ok {
		return fail("M38: missing filename"), nil
	}
	physical, err := hc.Directories.Resolve(RootGCodes, virtual.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	f, err := hc.Opener.Open(physical)
	if err != nil {
		return fail(fmt.Sprintf("M38: %s", err.Error())), nil
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, bufio.NewReader(f)); err != nil {
		return fail(fmt.Sprintf("M38: %s", err.Error())), nil
	}
	return success(hex.EncodeToString(h.Sum(nil))), nil
}

func handleM39(hc *Context, c *code.Code) (*code.CodeResult, error) {
	virtual := "/"
	if p, ok := unnamed(c); ok {
		virtual = p.Raw
	}
	physical, err := hc.Directories.Resolve(RootGCodes, virtual)
	if err != nil {
		return fail(err.Error()), nil
	}
	var total, free uint64
	if fs, err := diskUsage(physical); err == nil {
		total, free = fs.total, fs.free
	}
	b := wire.NewBuilder().Int("mounted", 1).Int("total", int64(total)).Int("free", int64(free))
	return jsonResult(b.Bytes()), nil
}

func handleM122(c *code.Code) *code.CodeResult {
	b := wire.NewBuilder().Str("status", "ok")
	return jsonResult(b.Bytes())
}

func handleM291(c *code.Code) *code.CodeResult {
	p, _ := param(c, 'P')
	msg := p.Raw
	if msg == "" {
		if u, ok := unnamed(c); ok {
			msg = u.Raw
		}
	}
	return success(msg)
}

// handleM470M471 implements §9's Open Question: a successful rename must
// return an empty result, not raise a FileNotFoundException-equivalent
// error (that error belongs only to the genuine not-found case).
func handleM470M471(hc *Context, c *code.Code) (*code.CodeResult, error) {
	oldParam, hasOld := param(c, 'O')
	newParam, hasNew := param(c, 'N')
	if !hasOld || !hasNew {
		return fail("M470/M471: O and N parameters are required"), nil
	}
	oldPhysical, err := hc.Directories.Resolve(RootGCodes, oldParam.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	newPhysical, err := hc.Directories.Resolve(RootGCodes, newParam.Raw)
	if err != nil {
		return fail(err.Error()), nil
	}
	if major(c) == 470 {
		if _, err := os.Stat(oldPhysical); err != nil {
			return fail(fmt.Sprintf("M470: %s", err.Error())), nil
		}
		return success(""), nil
	}
	if _, err := os.Stat(oldPhysical); err != nil {
		return fail(fmt.Sprintf("M471: %s", err.Error())), nil
	}
	if err := os.Rename(oldPhysical, newPhysical); err != nil {
		return fail(fmt.Sprintf("M471: %s", err.Error())), nil
	}
	return code.NewResult(), nil
}

func handleM550(hc *Context, c *code.Code) *code.CodeResult {
	p, ok := param(c, 'P')
	if !ok {
		if u, ok := unnamed(c); ok {
			p = u
		}
	}
	if p.Raw != "" {
		hc.Store.Set("network.name", p.Raw)
	}
	return success("")
}

func handleM555(hc *Context, c *code.Code) *code.CodeResult {
	p, ok := param(c, 'P')
	if !ok {
		return fail("M555: missing P parameter")
	}
	n, err := p.Int()
	if err != nil {
		return fail("M555: P is not an integer")
	}
	compat := compatFromIndex(n)
	hc.Store.Set("state.compatibility", compat.String())
	return success("")
}

func compatFromIndex(n int64) channel.Compatibility {
	switch n {
	case 1:
		return channel.RepRapFirmware
	case 2:
		return channel.Marlin
	case 3:
		return channel.Teacup
	case 4:
		return channel.Sprinter
	case 5:
		return channel.Repetier
	case 6:
		return channel.NanoDLP
	default:
		return channel.Me
	}
}

func dispatchKeyword(ctx context.Context, hc *Context, c *code.Code) (*code.CodeResult, error) {
	switch c.Keyword {
	case code.KeywordEcho:
		return success(strings.TrimSpace(c.KeywordArgument)), nil
	case code.KeywordAbort:
		return success(strings.TrimSpace(c.KeywordArgument)), nil
	default:
		// if/elif/else/while/break/continue/var/set have no internal
		// handler: Dispatch returns (nil, nil) for them, so the pipeline
		// treats them like any other unhandled code.
		return nil, nil
	}
}
