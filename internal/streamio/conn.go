package streamio

import (
	"bufio"
	"crypto/cipher"
	"io"
)

// CipherReader decrypts everything read through it with a cipher.Stream.
// Installed on a connection at EncryptionResponse time and never
// removed for the connection's remaining lifetime.
type CipherReader struct {
	r      io.Reader
	stream cipher.Stream
}

func NewCipherReader(r io.Reader, stream cipher.Stream) *CipherReader {
	return &CipherReader{r: r, stream: stream}
}

func (c *CipherReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.stream.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}

// ReadByte lets CipherReader satisfy io.ByteReader directly, so VarInt
// decoding on an encrypted connection doesn't need an extra adapter.
func (c *CipherReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return 0, err
	}
	c.stream.XORKeyStream(buf[:], buf[:])
	return buf[0], nil
}

// CipherWriter encrypts everything written through it.
type CipherWriter struct {
	w      io.Writer
	stream cipher.Stream
}

func NewCipherWriter(w io.Writer, stream cipher.Stream) *CipherWriter {
	return &CipherWriter{w: w, stream: stream}
}

func (c *CipherWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	c.stream.XORKeyStream(buf, p)
	return c.w.Write(buf)
}

// EnableEncryption wraps the connection's read and write sides in
// independent AES-128/CFB8 streams sharing secret as key and IV. It
// returns a *bufio.Reader over the decrypting reader so VarInt decoding
// continues to work the same way it did before encryption was enabled.
func EnableEncryption(r io.Reader, w io.Writer, secret []byte) (*bufio.Reader, *CipherWriter, error) {
	dec, err := NewCFB8Decrypter(secret)
	if err != nil {
		return nil, nil, err
	}
	enc, err := NewCFB8Encrypter(secret)
	if err != nil {
		return nil, nil, err
	}
	cr := NewCipherReader(r, dec)
	cw := NewCipherWriter(w, enc)
	return bufio.NewReader(cr), cw, nil
}
