// Binary file detection for early rejection of non-text files.
// Keeps obviously binary content out of the scan workers; the scanner still
// re-checks content for null bytes since this runs on path/metadata only.
package filter

import (
	"bytes"
	"path/filepath"
	"strings"
)

// BinaryDetector classifies files as binary by extension or leading bytes
type BinaryDetector struct {
	binaryExtensions map[string]bool
}

// magicNumbers are leading-byte signatures of common binary formats
var magicNumbers = [][]byte{
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // ZIP
	{0x50, 0x4B, 0x05, 0x06}, // ZIP (empty archive)
	{0x89, 0x50, 0x4E, 0x47}, // PNG
	{0xFF, 0xD8, 0xFF},       // JPEG
	{0x47, 0x49, 0x46, 0x38}, // GIF
	{0x25, 0x50, 0x44, 0x46}, // PDF
	{0x7F, 0x45, 0x4C, 0x46}, // ELF
	{0x4D, 0x5A},             // DOS/Windows executable
	{0xCA, 0xFE, 0xBA, 0xBE}, // Mach-O
	{0x77, 0x4F, 0x46, 0x46}, // WOFF
	{0x77, 0x4F, 0x46, 0x32}, // WOFF2
}

// NewBinaryDetector creates a detector with the common extension database
func NewBinaryDetector() *BinaryDetector {
	extensions := map[string]bool{
		// Fonts
		".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,

		// Images (SVG is text-based XML and stays searchable)
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
		".ico": true, ".webp": true, ".tiff": true, ".tif": true, ".svg": false,

		// Archives
		".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
		".7z": true, ".rar": true, ".jar": true, ".war": true, ".ear": true,

		// Executables and object code
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".a": true, ".o": true, ".obj": true, ".bin": true,

		// Media
		".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
		".flv": true, ".wav": true, ".flac": true, ".ogg": true,

		// Binary document formats
		".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
		".ppt": true, ".pptx": true,

		// Databases
		".db": true, ".sqlite": true, ".sqlite3": true,

		// Bytecode and serialized objects
		".pyc": true, ".pyo": true, ".class": true, ".pickle": true, ".pkl": true,
	}

	return &BinaryDetector{binaryExtensions: extensions}
}

// IsBinaryByExtension checks if a file is binary based on its extension alone
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	isBinary, exists := bd.binaryExtensions[ext]
	return exists && isBinary
}

// IsBinaryContent checks leading bytes for binary signatures and applies a
// null-byte/non-printable heuristic. Samples at most the first 512 bytes.
func (bd *BinaryDetector) IsBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	sample := content
	if len(sample) > 512 {
		sample = sample[:512]
	}

	for _, magic := range magicNumbers {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	nullBytes := 0
	nonPrintable := 0
	for _, b := range sample {
		if b == 0 {
			nullBytes++
		}
		// High bytes (>= 0x80) are not counted so UTF-8 text is not
		// misclassified
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		}
	}

	if nullBytes > len(sample)/100 {
		return true
	}
	if nonPrintable > len(sample)*30/100 {
		return true
	}
	return false
}
