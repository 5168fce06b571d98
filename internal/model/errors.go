package model

import "errors"

var (
	// ErrNetwork is returned when a remote resource answers with a non-success status.
	ErrNetwork = errors.New("network error")

	// ErrParse is returned when an expected markup or token structure is absent.
	ErrParse = errors.New("parse error")

	// ErrDecryption is returned when a payload cannot be decrypted: bad base64,
	// wrong block alignment, invalid padding or non UTF-8 plaintext.
	ErrDecryption = errors.New("decryption error")

	// ErrExtraction is returned when no descriptor can be built for a painting:
	// no panels or resources found, missing marker, or malformed fields.
	ErrExtraction = errors.New("extraction error")
)
