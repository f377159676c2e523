package staticfile

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDocument is served for directory requests.
const DefaultDocument = "index.gmi"

// ErrNotDirectory is returned by New when the public root is not a directory.
var ErrNotDirectory = errors.New("staticfile: public root is not a directory")

// Kind classifies a resolution result.
type Kind int

const (
	// KindMissing means no servable file exists for the path.
	KindMissing Kind = iota
	// KindFile means Result.Path is a regular file to serve as Result.MIME.
	KindFile
	// KindRedirect means the path named a directory without a trailing
	// slash; Result.Target is the corrected path (with query).
	KindRedirect
	// KindTraversal means the path resolved outside the public root.
	KindTraversal
	// KindBadPath means the path could not be decoded.
	KindBadPath
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindRedirect:
		return "redirect"
	case KindTraversal:
		return "traversal"
	case KindBadPath:
		return "bad_path"
	default:
		return "missing"
	}
}

// Result is the outcome of Resolve.
type Result struct {
	Kind   Kind
	Path   string
	MIME   string
	Target string
}

// Resolver resolves request paths below a canonical public root.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	root      string
	mimeTypes map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMIMETypes adds or overrides extension to MIME type mappings.
// Keys may be given with or without the leading dot.
func WithMIMETypes(types map[string]string) Option {
	return func(r *Resolver) {
		for ext, mt := range types {
			r.mimeTypes[normalizeExt(ext)] = mt
		}
	}
}

// New creates a resolver rooted at root.
func New(root string, opts ...Option) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("staticfile: resolve root %s: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("staticfile: resolve root %s: %w", root, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("staticfile: stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	r := &Resolver{
		root:      canonical,
		mimeTypes: make(map[string]string, len(defaultMIMETypes)),
	}
	for ext, mt := range defaultMIMETypes {
		r.mimeTypes[ext] = mt
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the canonical public root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps the escaped URL path (and raw query, used only for
// redirects) to a Result.
func (r *Resolver) Resolve(escapedPath, rawQuery string) Result {
	decoded, err := url.PathUnescape(escapedPath)
	if err != nil || strings.ContainsRune(decoded, 0) {
		return Result{Kind: KindBadPath}
	}
	if decoded == "" {
		decoded = "/"
	}

	target, ok := r.canonicalize(filepath.Join(r.root, filepath.FromSlash(decoded)))
	if !ok {
		return Result{Kind: KindTraversal, Path: target}
	}

	info, err := os.Stat(target)
	if err != nil {
		return Result{Kind: KindMissing}
	}

	if info.IsDir() {
		if !strings.HasSuffix(decoded, "/") {
			redirect := escapedPath + "/"
			if rawQuery != "" {
				redirect += "?" + rawQuery
			}
			return Result{Kind: KindRedirect, Target: redirect}
		}

		target, ok = r.canonicalize(filepath.Join(target, DefaultDocument))
		if !ok {
			return Result{Kind: KindTraversal, Path: target}
		}
		info, err = os.Stat(target)
		if err != nil {
			return Result{Kind: KindMissing}
		}
	}

	if !info.Mode().IsRegular() {
		return Result{Kind: KindMissing}
	}
	return Result{Kind: KindFile, Path: target, MIME: r.MIMEType(target)}
}

// canonicalize resolves symlinks in path and reports whether the result is
// still inside the public root. Paths that cannot be evaluated (missing,
// or a file used as a directory) are only cleaned; the following Stat
// reports them as missing.
func (r *Resolver) canonicalize(path string) (string, bool) {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		canonical = filepath.Clean(path)
	}
	return canonical, r.within(canonical)
}

func (r *Resolver) within(path string) bool {
	if path == r.root {
		return true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
