// Package compose mutates the working image: erasing template regions,
// compositing the avatar, and drawing the fitted caption.
package compose

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/golang/freetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/malonaz/meme-api/go/layout"
	"github.com/malonaz/meme-api/go/textfit"
	"github.com/malonaz/meme-api/go/typeface"
)

// NewCanvas copies the template onto a fresh zero-origin RGBA surface.
func NewCanvas(template image.Image) *image.RGBA {
	bounds := template.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), template, bounds.Min, draw.Src)
	return canvas
}

// EraseBox paints the box, expanded by padding on every side, white. The
// expansion covers template artwork bleeding past the nominal region edges.
func EraseBox(canvas *image.RGBA, box layout.Box, padding int) {
	region := rect(box.Expanded(padding)).Intersect(canvas.Bounds())
	draw.Draw(canvas, region, image.White, image.Point{}, draw.Src)
}

// DrawAvatar scales the avatar to a square and composites it centered in the
// avatar box's padded interior. The square side is the smaller interior
// dimension, so any source aspect ratio lands as a square.
func DrawAvatar(canvas *image.RGBA, avatar image.Image, box layout.Box, padding int) {
	interior := box.Inset(2 * padding)
	side := min(interior.Width(), interior.Height())
	if side <= 0 {
		return
	}
	x := interior.X0 + (interior.Width()-side)/2
	y := interior.Y0 + (interior.Height()-side)/2
	target := image.Rect(x, y, x+side, y+side)
	xdraw.CatmullRom.Scale(canvas, target, avatar, avatar.Bounds(), xdraw.Over, nil)
}

// DrawCaption draws fitted caption lines centered in the box, in black.
// Emoji clusters with color bitmaps are composited as images; everything
// else goes through the caption font. Cluster advances reuse the fit's
// width model so drawing lands where wrapping measured.
func DrawCaption(canvas *image.RGBA, fit textfit.Result, box layout.Box, spacing int, faces *typeface.Provider) error {
	if len(fit.Lines) == 0 {
		return nil
	}
	size := fit.Size
	lineHeight := faces.LineHeight(size)
	ascent := faces.Ascent(size)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(faces.Font())
	ctx.SetFontSize(float64(size))
	ctx.SetClip(canvas.Bounds())
	ctx.SetDst(canvas)
	ctx.SetSrc(image.Black)
	ctx.SetHinting(font.HintingFull)

	blockHeight := len(fit.Lines)*lineHeight + (len(fit.Lines)-1)*spacing
	top := box.Y0 + max(0, (box.Height()-blockHeight)/2)

	for i, line := range fit.Lines {
		lineTop := top + i*(lineHeight+spacing)
		pen := box.X0 + max(0, (box.Width()-line.Width)/2)
		baseline := lineTop + ascent
		for _, cluster := range line.Clusters {
			width := textfit.ClusterWidth(cluster, size, faces)
			if cluster.Emoji() {
				if images, ok := faces.EmojiImages(string(cluster), size); ok {
					drawEmoji(canvas, images, pen, lineTop, size, lineHeight)
					pen += width
					continue
				}
			}
			if _, err := ctx.DrawString(string(cluster), freetype.Pt(pen, baseline)); err != nil {
				return fmt.Errorf("drawing caption text: %w", err)
			}
			pen += width
		}
	}
	return nil
}

// drawEmoji composites bitmap glyphs left to right, each scaled to an em
// square and vertically centered on the line.
func drawEmoji(canvas *image.RGBA, images []image.Image, x, lineTop, size, lineHeight int) {
	top := lineTop + (lineHeight-size)/2
	for i, img := range images {
		left := x + i*size
		target := image.Rect(left, top, left+size, top+size)
		xdraw.CatmullRom.Scale(canvas, target, img, img.Bounds(), xdraw.Over, nil)
	}
}

func rect(box layout.Box) image.Rectangle {
	return image.Rect(box.X0, box.Y0, box.X1, box.Y1)
}
