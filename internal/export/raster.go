package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/render"
)

// source is the decoded input of the rasterize stage. The vector parser
// skips <image> and <text>, so the background bitmap and labels travel
// next to the icon and are painted separately.
type source struct {
	icon       *oksvg.SvgIcon
	background image.Image
	labels     []render.Command
}

func decode(markup []byte, cmds []render.Command) (*source, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	src := &source{icon: icon}
	for _, c := range cmds {
		switch c.Op {
		case render.OpImage:
			bg, _, err := asset.DecodeImage(c.Href)
			if err != nil {
				return nil, fmt.Errorf("background: %w", err)
			}
			src.background = bg
		case render.OpText:
			src.labels = append(src.labels, c)
		}
	}
	return src, nil
}

// draw paints the source onto a white bitmap: background stretched to the
// canvas, then shapes, then labels.
func (s *source) draw(w, h int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if s.background != nil {
		draw.CatmullRom.Scale(img, img.Bounds(), s.background, s.background.Bounds(), draw.Over, nil)
	}

	s.icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	s.icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	if len(s.labels) > 0 {
		face, err := labelFace()
		if err != nil {
			return nil, err
		}
		for _, l := range s.labels {
			drawLabel(img, face, l)
		}
	}
	return img, nil
}

var (
	faceOnce sync.Once
	faceVal  font.Face
	faceErr  error
)

func labelFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			faceErr = fmt.Errorf("parse font: %w", err)
			return
		}
		faceVal, faceErr = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    render.LabelFontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	})
	return faceVal, faceErr
}

// drawLabel centers text on the label position horizontally and
// vertically, matching text-anchor=middle and dominant-baseline=middle.
func drawLabel(dst *image.RGBA, face font.Face, l render.Command) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(hexColor(l.Fill)),
		Face: face,
	}
	m := face.Metrics()
	adv := d.MeasureString(l.Text)
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(l.X*64) - adv/2,
		Y: fixed.Int26_6(l.Y*64) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(l.Text)
}

func hexColor(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.Black
	}
	return c
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePDF embeds the bitmap in a single page of the same size, in points.
func encodePDF(img image.Image, width, height float64) ([]byte, error) {
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("drawing", opts, bytes.NewReader(pngData))
	pdf.ImageOptions("drawing", 0, 0, width, height, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
