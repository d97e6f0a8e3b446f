package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndValidate(t *testing.T) {
	id := NewDrawingID()
	assert.True(t, strings.HasPrefix(id, "drw_"))
	assert.NoError(t, Validate(id, PrefixDrawing))
	assert.Error(t, Validate(id, PrefixExport))
	assert.Error(t, Validate("not an id", PrefixDrawing))
	assert.NotEqual(t, NewExportID(), NewExportID())
}
