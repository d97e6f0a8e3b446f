package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDrawing = "drw"
	PrefixExport  = "exp"
	PrefixImport  = "img"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewDrawingID() string { return New(PrefixDrawing) }
func NewExportID() string  { return New(PrefixExport) }
func NewImportID() string  { return New(PrefixImport) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
