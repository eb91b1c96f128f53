// Package streamio implements the per-connection AES-128/CFB8 stream
// cipher and the zlib threshold-compression framing of the post-login
// wire.
//
// Go's standard library cipher.NewCFBEncrypter/NewCFBDecrypter implement
// CFB with a feedback segment equal to the cipher's block size (128 bits
// for AES); Minecraft's protocol specifically requires 8-bit-segmented
// CFB ("CFB8"), which the standard library does not expose. There is no
// widely used third-party Go implementation of CFB8 either (it is a
// narrow, protocol-specific mode), so this file implements it directly on
// top of crypto/aes's block cipher.
package streamio

import (
	"crypto/aes"
	"crypto/cipher"
)

// cfb8 implements cipher.Stream for 8-bit-segment CFB mode. One instance
// holds the feedback shift register for exactly one direction of one
// connection; it must never be called concurrently.
type cfb8 struct {
	block   cipher.Block
	iv      []byte // shift register, len == block.BlockSize()
	encrypt bool
	scratch []byte
}

// newCFB8 builds a CFB8 stream. iv is copied so the caller's slice is not
// retained.
func newCFB8(block cipher.Block, iv []byte, encrypt bool) *cfb8 {
	reg := make([]byte, len(iv))
	copy(reg, iv)
	return &cfb8{
		block:   block,
		iv:      reg,
		encrypt: encrypt,
		scratch: make([]byte, block.BlockSize()),
	}
}

// XORKeyStream encrypts or decrypts src into dst, one byte at a time, per
// the CFB8 feedback rule: each output byte XORs the input byte against the
// first byte of E(register), then the register shifts left by one byte
// and the new last byte becomes the ciphertext byte (regardless of
// direction; CFB8 always feeds back ciphertext, never plaintext).
func (c *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("streamio: dst shorter than src")
	}
	n := len(c.iv)
	for i := range src {
		c.block.Encrypt(c.scratch, c.iv)
		var cipherByte byte
		if c.encrypt {
			cipherByte = src[i] ^ c.scratch[0]
			dst[i] = cipherByte
		} else {
			cipherByte = src[i]
			dst[i] = cipherByte ^ c.scratch[0]
		}
		copy(c.iv, c.iv[1:n])
		c.iv[n-1] = cipherByte
	}
}

// NewCFB8Encrypter returns a cipher.Stream that encrypts with AES-128/CFB8
// using key as both the AES key and the initial feedback register, the
// way vanilla derives both from the 16-byte shared secret.
func NewCFB8Encrypter(key []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return newCFB8(block, key, true), nil
}

// NewCFB8Decrypter returns the inverse transform. Encrypt and decrypt
// streams hold independent feedback registers, which is why each
// call here constructs its own *cfb8 rather than sharing one.
func NewCFB8Decrypter(key []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return newCFB8(block, key, false), nil
}
