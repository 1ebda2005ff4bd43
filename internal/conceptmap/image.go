package conceptmap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/natefinch/atomic"
)

type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

const (
	imageWidth  = 200
	imageHeight = 100
)

// ParseFormat accepts "svg" (also the empty string) and "png".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(SVG):
		return SVG, nil
	case string(PNG):
		return PNG, nil
	}
	return "", fmt.Errorf("unknown image format %q (expected svg or png)", s)
}

// Named colors used by the sample images. SVG output keeps the name, PNG
// output needs the value.
var palette = map[string]color.RGBA{
	"darkblue":  {0x00, 0x00, 0x8b, 0xff},
	"darkgreen": {0x00, 0x64, 0x00, 0xff},
	"darkred":   {0x8b, 0x00, 0x00, 0xff},
	"purple":    {0x80, 0x00, 0x80, 0xff},
}

// GenerateImage writes a 200x100 placeholder image, a filled rectangle in
// fill labelled with its file name, to dir/name.<format> and returns the path.
func GenerateImage(dir, name, fill string, format Format) (string, error) {
	path := filepath.Join(dir, name+"."+string(format))

	var (
		data []byte
		err  error
	)
	switch format {
	case SVG:
		data, err = renderSVG(filepath.Base(path), fill)
	case PNG:
		data, err = renderPNG(filepath.Base(path), fill)
	default:
		err = fmt.Errorf("unknown image format %q", format)
	}
	if err != nil {
		return "", err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("error writing image %s: %w", path, err)
	}
	return path, nil
}

func renderSVG(label, fill string) ([]byte, error) {
	var esc bytes.Buffer
	if err := xml.EscapeText(&esc, []byte(label)); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
  <rect width="%d" height="%d" fill="%s"/>
  <text x="%d" y="%d" font-family="Arial" font-size="16" fill="white" text-anchor="middle" dominant-baseline="middle">%s</text>
</svg>`, imageWidth, imageHeight, imageWidth, imageHeight, fill, imageWidth/2, imageHeight/2, esc.String())
	return buf.Bytes(), nil
}

func renderPNG(label, fill string) ([]byte, error) {
	base, ok := palette[fill]
	if !ok {
		return nil, fmt.Errorf("unknown color %q", fill)
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, imageWidth, imageHeight)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawStringAnchored(label, imageWidth/2, imageHeight/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("error encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
