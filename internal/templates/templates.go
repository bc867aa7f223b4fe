// Package templates loads the blank check images of each bank.
package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"imprimecheque/internal/core"
)

// MaxSize bounds a template file.
const MaxSize = 16 << 20

const chunkSize = 64 << 10

// Dir reads templates from a directory. A bank's Template field is a file
// name relative to it.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// LoadTemplate returns the template bytes of bank. It reads in chunks and
// stops as soon as ctx is done. Unknown, unreadable or oversized templates
// are reported as core.ErrMissingTemplate.
func (d *Dir) LoadTemplate(ctx context.Context, bank core.Bank) ([]byte, error) {
	if bank.Template == "" {
		return nil, fmt.Errorf("bank %s has no template: %w", bank.Code, core.ErrMissingTemplate)
	}
	if !filepath.IsLocal(bank.Template) {
		return nil, fmt.Errorf("template %q escapes the template directory: %w", bank.Template, core.ErrMissingTemplate)
	}

	f, err := os.Open(filepath.Join(d.root, bank.Template))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("template %q for bank %s: %w", bank.Template, bank.Code, core.ErrMissingTemplate)
		}
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	return readBounded(ctx, f, bank.Template)
}

func readBounded(ctx context.Context, r io.Reader, name string) ([]byte, error) {
	var out []byte
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if len(out) > MaxSize {
			return nil, fmt.Errorf("template %q larger than %d bytes: %w", name, MaxSize, core.ErrMissingTemplate)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read template %q: %w", name, err)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("template %q is empty: %w", name, core.ErrMissingTemplate)
	}
	return out, nil
}
