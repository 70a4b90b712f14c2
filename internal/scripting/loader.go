package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// compatMainScript is loaded last when present, for mods that ship a single
// entry script instead of a directory of them.
const compatMainScript = "Scripts/main.lua"

// Script is one source file handed to the VM.
type Script struct {
	Name   string
	Source []byte
}

// ReadScripts reads all .lua files in dir (sorted by name), decoding them
// from the configured encoding. A missing dir yields no scripts.
func ReadScripts(dir, encoding string) ([]Script, error) {
	decode, err := decoderFor(encoding)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // skip missing dirs
		}
		return nil, fmt.Errorf("read scripts dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".lua") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if _, err := os.Stat(filepath.Join(dir, compatMainScript)); err == nil {
		names = append(names, compatMainScript)
	}

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", path, err)
		}
		src, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode script %s: %w", path, err)
		}
		scripts = append(scripts, Script{Name: path, Source: src})
	}
	return scripts, nil
}

func decoderFor(encoding string) (func([]byte) ([]byte, error), error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return func(b []byte) ([]byte, error) { return b, nil }, nil
	case "shift_jis", "shift-jis", "sjis":
		return func(b []byte) ([]byte, error) {
			out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
			return out, err
		}, nil
	}
	return nil, fmt.Errorf("unsupported script encoding %q", encoding)
}

// Digest identifies a script set; reloads are skipped when it is unchanged.
func Digest(scripts []Script) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)
	for _, s := range scripts {
		h.Write([]byte(s.Name))
		h.Write([]byte{0})
		h.Write(s.Source)
		h.Write([]byte{0})
	}
	var sum [blake2b.Size256]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
