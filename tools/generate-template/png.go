package main

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/malonaz/meme-api/go/layout"
)

func generatePNG(l layout.Layout) (*image.RGBA, error) {
	background, err := hexToRGBA(opts.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("invalid background color: %v", err)
	}
	accent, err := hexToRGBA(opts.AccentColor)
	if err != nil {
		return nil, fmt.Errorf("invalid accent color: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	strokeBox(img, l.CaptionBox, accent, 4)
	strokeBox(img, l.AvatarBox, accent, 4)

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %v", err)
	}
	const size = 48
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72})

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(accent))
	c.SetHinting(font.HintingFull)

	if err := drawLabel(c, face, "caption", l.CaptionBox, size); err != nil {
		return nil, err
	}
	if err := drawLabel(c, face, "avatar", l.AvatarBox, size); err != nil {
		return nil, err
	}
	return img, nil
}

// drawLabel centers the region name inside its box.
func drawLabel(c *freetype.Context, face font.Face, text string, box layout.Box, size int) error {
	width := font.MeasureString(face, text).Ceil()
	x := box.X0 + (box.Width()-width)/2
	y := box.Y0 + (box.Height()+size)/2
	if _, err := c.DrawString(text, freetype.Pt(x, y)); err != nil {
		return fmt.Errorf("drawing %s label: %v", text, err)
	}
	return nil
}
