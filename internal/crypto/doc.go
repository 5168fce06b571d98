// Package crypto unwraps the encrypted image configuration embedded in
// Minghua Ji painting pages.
//
// The payload is base64 text, AES-128-CBC encrypted with PKCS#7 padding.
// The plaintext is a '^' separated list of fields:
//
//	fields, err := crypto.Decrypt(payload, key, iv)
//	// fields = [tile url, format, width, height, tile size]
//
// Key and IV are published inside a script as hex escaped strings such as
// "\x6b\x65\x79...". UnescapeHex turns them into raw bytes:
//
//	key, err := crypto.UnescapeHex(`\x30\x31\x32...`)
package crypto
