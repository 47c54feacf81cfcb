/*
Package req decodes inbound client data.

Frames arrive as single JSON objects. DecodeFrame rejects anything that is not exactly
one JSON value, mapping failures onto errs codes so callers can log them uniformly.
Unknown fields are tolerated, since presentation clients may attach extra metadata.
*/
package req

import (
	"bytes"
	"encoding/json"

	"buddychat/internal/pkg/errs"
)

// DecodeFrame unmarshals one JSON frame into dst.
func DecodeFrame(data []byte, dst any) *errs.CustomError {
	decoder := json.NewDecoder(bytes.NewReader(data))

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
