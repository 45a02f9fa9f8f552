package antigravity

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

// dataImageURL matches the only image URL form the upstream can consume inline.
// Remote image URLs would need a fetch, which this adapter does not do.
var dataImageURL = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// Image is an inline image extracted from message content.
type Image struct {
	MimeType string
	Data     string // base64
}

// Extracted is the text and inline images of one message.
type Extracted struct {
	Text   string
	Images []Image
}

// ExtractContent pulls text and inline images out of message content.
//
// A plain string is returned as is. For a part list, text parts are concatenated in order and
// every data:image/<fmt>;base64 URL becomes an image with mime type image/<fmt>. Anything else
// is skipped; malformed parts never fail the request.
func ExtractContent(ctx context.Context, content types.MessageContent) Extracted {
	if content.IsString() {
		return Extracted{Text: *content.Text}
	}

	var (
		text strings.Builder
		out  Extracted
	)
	for i, part := range content.Parts {
		switch part.Type {
		case types.ContentPartText:
			text.WriteString(part.Text)
		case types.ContentPartImageURL:
			if img, ok := parseDataImage(part.ImageURL); ok {
				out.Images = append(out.Images, img)
				continue
			}
			slog.DebugContext(ctx, "skipping image part without inline data URL", "part_index", i)
		default:
			slog.DebugContext(ctx, "skipping unsupported content part", "part_index", i, "type", part.Type)
		}
	}
	out.Text = text.String()
	return out
}

func parseDataImage(u *types.ImageURL) (Image, bool) {
	if u == nil {
		return Image{}, false
	}
	m := dataImageURL.FindStringSubmatch(u.URL)
	if m == nil {
		return Image{}, false
	}
	return Image{MimeType: "image/" + m[1], Data: m[2]}, true
}

// dataURL renders inline data back into a data URL for clients.
func dataURL(mimeType, data string) string {
	return "data:" + mimeType + ";base64," + data
}
