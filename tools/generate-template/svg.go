package main

import (
	"bytes"
	"fmt"

	svg "github.com/ajstarks/svgo"

	"github.com/malonaz/meme-api/go/layout"
)

func generateSVG(l layout.Layout) ([]byte, error) {
	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, fmt.Sprintf("fill:%s", opts.BackgroundColor))

	boxStyle := fmt.Sprintf("fill:none;stroke:%s;stroke-width:4", opts.AccentColor)
	canvas.Rect(l.CaptionBox.X0, l.CaptionBox.Y0, l.CaptionBox.Width(), l.CaptionBox.Height(), boxStyle)
	canvas.Rect(l.AvatarBox.X0, l.AvatarBox.Y0, l.AvatarBox.Width(), l.AvatarBox.Height(), boxStyle)

	textStyle := fmt.Sprintf("font-family:Arial,sans-serif;font-size:48px;fill:%s;text-anchor:middle", opts.AccentColor)
	canvas.Text(l.CaptionBox.X0+l.CaptionBox.Width()/2, l.CaptionBox.Y0+l.CaptionBox.Height()/2, "caption", textStyle)
	canvas.Text(l.AvatarBox.X0+l.AvatarBox.Width()/2, l.AvatarBox.Y0+l.AvatarBox.Height()/2, "avatar", textStyle)

	canvas.End()
	return buf.Bytes(), nil
}
