package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format is an export output type.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF}

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(s), "."))
	switch f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FileName is the fixed download name for the format.
func (f Format) FileName() string {
	return "drawing." + string(f)
}

// ContentType is the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
