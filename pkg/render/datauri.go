package render

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURI decodes a `data:<mime type>;base64,<payload>` string.
// It splits on the first comma, takes the MIME type from the prefix and
// base64-decodes the payload, which may be unpadded.
func DecodeDataURI(uri string) (Screenshot, error) {
	prefix, payload, found := strings.Cut(uri, ",")
	if !found {
		return Screenshot{}, fmt.Errorf("%w: data uri has no payload separator", ErrMalformedResponse)
	}
	scheme, params, found := strings.Cut(prefix, ":")
	if !found || scheme != "data" {
		return Screenshot{}, fmt.Errorf("%w: not a data uri: %.32q", ErrMalformedResponse, prefix)
	}
	contentType, _, _ := strings.Cut(params, ";")
	encoding := base64.StdEncoding
	if len(payload)%4 != 0 {
		// padding is optional
		encoding = base64.RawStdEncoding
	}
	data, err := encoding.DecodeString(payload)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: decode payload: %v", ErrMalformedResponse, err)
	}
	return Screenshot{Data: data, ContentType: contentType}, nil
}
