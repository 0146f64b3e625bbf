// Package mimetypes classifies detected attachment content into the
// message types the routing core understands.
package mimetypes

import (
	"chat-relay/domain"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// KindOf maps a detected MIME type to the message type an attachment
// produces: images render inline, audio plays as a voice note, everything
// else is a plain file.
func KindOf(detected *mimetype.MIME) domain.MessageType {
	switch {
	case strings.HasPrefix(detected.String(), "image/"):
		return domain.TypeImage
	case strings.HasPrefix(detected.String(), "audio/"):
		return domain.TypeVoice
	default:
		return domain.TypeFile
	}
}

// Detect sniffs content bytes. The client-declared content type is never
// trusted.
func Detect(content []byte) *mimetype.MIME {
	return mimetype.Detect(content)
}
