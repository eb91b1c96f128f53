package mojang

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These three vectors are digests of a bare name (AuthDigest(name, nil,
// nil)) under the signed big-endian integer rule. "jeb_" has its top bit
// set and so exercises the negative, two's-complement branch; the other
// two cover the positive case, including a dropped leading zero ("simon"),
// independently of the full key-exchange flow.
func TestAuthDigestKnownVectors(t *testing.T) {
	cases := map[string]string{
		"Notch": "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48",
		"jeb_":  "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1",
		"simon": "88e16a1019277b15d58faf0541e11910eb756f6",
	}
	for name, want := range cases {
		got := AuthDigest(name, nil, nil)
		assert.Equal(t, want, got, "digest for %q", name)
	}
}

func TestOfflineUUIDIsDeterministicV3(t *testing.T) {
	a := OfflineUUID("Alice")
	b := OfflineUUID("Alice")
	assert.Equal(t, a, b)
	assert.Equal(t, byte(3), a[6]>>4, "version nibble must be 3")
	assert.Equal(t, byte(2), a[8]>>6, "variant bits must be RFC 4122 (10xxxxxx)")

	other := OfflineUUID("Bob")
	assert.NotEqual(t, a, other)
}

func TestSessionVerifierHasJoinedOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Alice", r.URL.Query().Get("username"))
		_ = json.NewEncoder(w).Encode(Profile{ID: "11111111111141118111111111111111", Name: "Alice"})
	}))
	defer srv.Close()

	v := SessionVerifier{BaseURL: srv.URL}
	profile, err := v.HasJoined("Alice", "somehash")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
}

func TestSessionVerifierHasJoinedForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	v := SessionVerifier{BaseURL: srv.URL}
	_, err := v.HasJoined("Alice", "somehash")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionVerifierHasJoinedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := SessionVerifier{BaseURL: srv.URL}
	_, err := v.HasJoined("Alice", "somehash")
	assert.ErrorIs(t, err, ErrAuthServersUnreachable)
}

func TestKeypairEncryptDecryptRoundTrip(t *testing.T) {
	kp, err := New()
	require.NoError(t, err)
	assert.NotEmpty(t, kp.PublicKeyDER())

	pub, err := x509.ParsePKIXPublicKey(kp.PublicKeyDER())
	require.NoError(t, err)
	secret := []byte("0123456789abcdef")
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub.(*rsa.PublicKey), secret)
	require.NoError(t, err)
	pt, err := kp.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, secret, pt)
}
