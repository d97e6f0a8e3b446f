package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/render"
)

// Stage names a step of the raster pipeline.
type Stage string

const (
	StageSerialize Stage = "serialize"
	StageDecode    Stage = "decode"
	StageRasterize Stage = "rasterize"
	StageEncode    Stage = "encode"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}

// Artifact is a finished export ready for download.
type Artifact struct {
	Format      Format
	FileName    string
	ContentType string
	Data        []byte
}

// Pipeline exports scenes at a fixed logical canvas size. Exports never
// include selection decorations, and each call works on the scene it is
// given, so concurrent exports of the same drawing do not share state.
type Pipeline struct {
	Width  float64
	Height float64
}

func NewPipeline(width, height float64) *Pipeline {
	return &Pipeline{Width: width, Height: height}
}

// Export renders scene in the requested format.
//
// SVG is the serialized markup as-is. PNG and PDF run the markup through
// decode, rasterize and encode; each stage checks ctx before starting.
func (p *Pipeline) Export(ctx context.Context, f Format, scene *document.Scene) (*Artifact, error) {
	f, err := ParseFormat(string(f))
	if err != nil {
		return nil, err
	}

	opts := render.Options{Width: p.Width, Height: p.Height}
	cmds := render.Compile(scene, opts)
	markup, err := render.SVG(scene, opts, render.FrameFor(p.Width, p.Height))
	if err != nil {
		return nil, stageErr(StageSerialize, err)
	}

	var data []byte
	switch f {
	case FormatSVG:
		data = markup
	case FormatPNG, FormatPDF:
		img, err := p.rasterize(ctx, markup, cmds)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, stageErr(StageEncode, err)
		}
		if f == FormatPNG {
			data, err = encodePNG(img)
		} else {
			data, err = encodePDF(img, p.Width, p.Height)
		}
		if err != nil {
			return nil, stageErr(StageEncode, err)
		}
	}

	slog.Debug("export rendered", "format", f, "shapes", len(scene.Shapes), "bytes", len(data))
	return &Artifact{
		Format:      f,
		FileName:    f.FileName(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// rasterize runs the decode and rasterize stages.
func (p *Pipeline) rasterize(ctx context.Context, markup []byte, cmds []render.Command) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageDecode, err)
	}
	src, err := decode(markup, cmds)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageRasterize, err)
	}
	img, err := src.draw(p.pixelSize())
	if err != nil {
		return nil, stageErr(StageRasterize, err)
	}
	return img, nil
}

func (p *Pipeline) pixelSize() (int, int) {
	w, h := int(p.Width+0.5), int(p.Height+0.5)
	return max(w, 1), max(h, 1)
}
