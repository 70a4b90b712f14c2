// Package symbolize rewrites unresolved frames of a crash backtrace using an
// address-to-symbol resolver.
package symbolize

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	textStartRe = regexp.MustCompile(`(?i)__text_start = 0x([0-9a-f]+)`)
	frameRe     = regexp.MustCompile(`0x([0-9a-f]+) - <unknown>`)
)

const backtraceMarker = "stack backtrace:"

// Resolver maps an image-relative address to a function and source location.
type Resolver interface {
	Resolve(ctx context.Context, addr uint64) (fn, file string, err error)
}

// Filter copies r to w line by line. Once the backtrace marker has been seen,
// every `0x<hex> - <unknown>` frame is resolved against the text base and
// replaced with `0x<hex> - <fn> (<file>)`. A frame the resolver fails on is
// written unchanged.
func Filter(ctx context.Context, r io.Reader, w io.Writer, res Resolver, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		textStart uint64
		armed     bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)

	for sc.Scan() {
		line := sc.Text()
		if textStart == 0 {
			if m := textStartRe.FindStringSubmatch(line); m != nil {
				textStart, _ = strconv.ParseUint(m[1], 16, 64)
			}
		}
		if strings.Contains(line, backtraceMarker) {
			armed = true
		}
		if armed {
			line = rewriteFrame(ctx, line, textStart, res, log)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return bw.Flush()
}

func rewriteFrame(ctx context.Context, line string, textStart uint64, res Resolver, log *zap.Logger) string {
	loc := frameRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return line
	}
	addr, err := strconv.ParseUint(line[loc[2]:loc[3]], 16, 64)
	if err != nil {
		return line
	}
	fn, file, err := res.Resolve(ctx, addr-textStart)
	if err != nil {
		log.Debug("resolve frame failed", zap.String("addr", fmt.Sprintf("%#x", addr)), zap.Error(err))
		return line
	}
	return line[:loc[0]] + fmt.Sprintf("%#x - %s (%s)", addr, fn, file) + line[loc[1]:]
}

// Addr2Line resolves addresses by running binutils addr2line against an image.
type Addr2Line struct {
	Binary string
	Tool   string // defaults to "addr2line"
}

// ErrNoOutput is returned when the tool exited cleanly but printed nothing.
var ErrNoOutput = errors.New("addr2line produced no output")

func (a Addr2Line) Resolve(ctx context.Context, addr uint64) (string, string, error) {
	tool := a.Tool
	if tool == "" {
		tool = "addr2line"
	}
	cmd := exec.CommandContext(ctx, tool, "-e", a.Binary, "-j", ".text", "-f", "-C", fmt.Sprintf("%#x", addr))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("%s %#x: %w: %s", tool, addr, err, strings.TrimSpace(stderr.String()))
	}
	lines := strings.SplitN(strings.TrimRight(string(out), "\n"), "\n", 3)
	if len(lines) == 0 || lines[0] == "" {
		return "", "", ErrNoOutput
	}
	fn := lines[0]
	file := ""
	if len(lines) > 1 {
		file = lines[1]
	}
	return fn, file, nil
}
