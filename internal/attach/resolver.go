// Package attach resolves embedded-file references in note text into
// base64-encoded attachment payloads ready for transport.
package attach

import (
	"encoding/base64"
	"log/slog"
	"path"
	"strings"

	"github.com/runeberg/ansuz/internal/notify"
	"github.com/runeberg/ansuz/internal/parser"
)

// LinkResolver maps an embed target name to a vault path.
type LinkResolver interface {
	Resolve(name, sourcePath string) (string, error)
}

// BinaryReader reads raw file bytes from the vault.
type BinaryReader interface {
	Read(path string) ([]byte, error)
}

// AttachmentRef is one resolved embed. Data holds the file content base64
// encoded. Refs are built fresh on every invocation; vault state may change
// between runs.
type AttachmentRef struct {
	Path      string
	Extension string
	MediaType string
	Data      string
}

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"svg":  "image/svg+xml",
}

const (
	pdfMediaType      = "application/pdf"
	fallbackMediaType = "application/octet-stream"
)

// IsImage reports whether ext maps to an image content block.
func IsImage(ext string) bool {
	_, ok := imageTypes[strings.ToLower(ext)]
	return ok
}

// IsDocument reports whether ext maps to a document content block.
func IsDocument(ext string) bool {
	return strings.ToLower(ext) == "pdf"
}

// MediaType returns the transport media type for a file extension. Unknown
// extensions get a generic octet-stream tag; those never reach a provider
// because unsupported embeds are skipped during resolution.
func MediaType(ext string) string {
	ext = strings.ToLower(ext)
	if mt, ok := imageTypes[ext]; ok {
		return mt
	}
	if ext == "pdf" {
		return pdfMediaType
	}
	return fallbackMediaType
}

// Resolver turns ![[name]] embeds into AttachmentRefs using the vault's link
// index and file store.
type Resolver struct {
	links  LinkResolver
	files  BinaryReader
	logger *slog.Logger
}

// New returns a Resolver over the given collaborators.
func New(links LinkResolver, files BinaryReader, logger *slog.Logger) *Resolver {
	return &Resolver{links: links, files: files, logger: logger}
}

// Resolve scans text (note body plus selection, concatenated by the caller)
// for embeds and returns refs in discovery order. A missing file, an
// unsupported type, or a failed read each produce one notification and skip
// that embed only. Two embeds resolving to the same file yield one ref.
func (r *Resolver) Resolve(text, sourcePath string, sink notify.Sink) []AttachmentRef {
	var refs []AttachmentRef
	seen := make(map[string]struct{})

	for _, name := range parser.ExtractEmbeds(text) {
		p, err := r.links.Resolve(name, sourcePath)
		if err != nil {
			r.logger.Warn("attach: unresolved embed", slog.String("name", name), slog.String("error", err.Error()))
			sink.Notify("File not found: " + name)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}

		ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
		if !IsImage(ext) && !IsDocument(ext) {
			r.logger.Warn("attach: unsupported file type", slog.String("path", p))
			sink.Notify("Unsupported file type: " + name)
			continue
		}

		data, err := r.files.Read(p)
		if err != nil {
			r.logger.Warn("attach: read failed", slog.String("path", p), slog.String("error", err.Error()))
			sink.Notify("Could not read attachment: " + name)
			continue
		}

		seen[p] = struct{}{}
		refs = append(refs, AttachmentRef{
			Path:      p,
			Extension: ext,
			MediaType: MediaType(ext),
			Data:      base64.StdEncoding.EncodeToString(data),
		})
	}
	return refs
}
