// Package mojang implements the RSA key exchange, Mojang session-server
// verification, and offline-mode UUID derivation used by the login
// flow. The RSA keypair is a process-wide immutable singleton: one
// keypair serves every connection handled by a proxy process.
package mojang

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// KeySize is the 1024-bit RSA key vanilla servers advertise.
const KeySize = 1024

// Keypair is the proxy-wide RSA keypair used for the encryption handshake.
// Immutable after New returns.
type Keypair struct {
	private   *rsa.PrivateKey
	publicDER []byte
}

// New generates a fresh RSA keypair and pre-encodes its public half as DER,
// the form EncryptionRequest puts on the wire.
func New() (*Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("mojang: generate keypair: %w", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("mojang: marshal public key: %w", err)
	}
	return &Keypair{private: priv, publicDER: der}, nil
}

// PublicKeyDER is the DER-encoded public key sent in EncryptionRequest.
func (k *Keypair) PublicKeyDER() []byte { return k.publicDER }

// Decrypt reverses a client's RSA PKCS#1v1.5 encryption of the shared
// secret or verify token.
func (k *Keypair) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, k.private, ciphertext)
}

// AuthDigest computes the Mojang "server ID" hash used by hasJoined:
// SHA-1 of (serverID || sharedSecret || pubKeyDER), reinterpreted as a
// signed big-endian integer and rendered in lowercase hex with a leading
// "-" for negative values and no leading zeros.
// This is Mojang's own nonstandard "two's-complement hex" digest, not a
// plain SHA-1 hex dump.
func AuthDigest(serverID string, sharedSecret, pubKeyDER []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(pubKeyDER)
	sum := h.Sum(nil)

	n := new(big.Int).SetBytes(sum)
	if sum[0]&0x80 != 0 {
		// Top bit set: value is negative in Minecraft's signed
		// interpretation. Two's-complement by subtracting 2^160, then
		// print the magnitude with a leading '-'.
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(sum)*8))
		n.Sub(n, max)
		return "-" + new(big.Int).Neg(n).Text(16)
	}
	return n.Text(16)
}

// OfflineUUID derives the UUID assigned to an offline-mode player: a
// version-3 (name-based) UUID over "OfflinePlayer:<username>", matching
// Java's UUID.nameUUIDFromBytes(bytes), NOT RFC 4122's namespaced v3
// (which additionally hashes a namespace UUID).
func OfflineUUID(username string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // RFC 4122 variant
	id, _ := uuid.FromBytes(sum[:])
	return id
}

// ErrInvalidSession is returned when the session server does not confirm
// the client actually authenticated with Mojang.
var ErrInvalidSession = errors.New("mojang: invalid session")

// ErrAuthServersUnreachable marks a 5xx/network failure talking to the
// session server; callers must not retry.
var ErrAuthServersUnreachable = errors.New("mojang: auth servers unreachable")

// Profile is the subset of the session-server response Bamboo cares about.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name      string `json:"name"`
		Value     string `json:"value"`
		Signature string `json:"signature,omitempty"`
	} `json:"properties"`
}

// UUID parses the profile's dashless hex ID into a uuid.UUID.
func (p Profile) UUID() (uuid.UUID, error) {
	return uuid.Parse(p.ID)
}

// sessionServerURL is the default Mojang endpoint; overridable by tests
// via SessionVerifier.BaseURL so tests can stand in a synthetic
// session server without network access.
const sessionServerURL = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

// SessionVerifier calls Mojang's hasJoined endpoint. The zero value talks
// to the real session server; tests point BaseURL at an httptest server.
type SessionVerifier struct {
	BaseURL string
	Client  *http.Client
}

func (v SessionVerifier) client() *http.Client {
	if v.Client != nil {
		return v.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (v SessionVerifier) baseURL() string {
	if v.BaseURL != "" {
		return v.BaseURL
	}
	return sessionServerURL
}

// HasJoined performs the hasJoined GET: 200 with a profile body
// confirms the client authenticated; any other status is a rejected
// session, and a 5xx is distinguished so the caller can report "auth
// servers unreachable" rather than "invalid session".
func (v SessionVerifier) HasJoined(username, serverID string) (Profile, error) {
	q := url.Values{
		"username": {username},
		"serverId": {serverID},
	}
	resp, err := v.client().Get(v.baseURL() + "?" + q.Encode())
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrAuthServersUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var p Profile
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return Profile{}, fmt.Errorf("mojang: decode profile: %w", err)
		}
		return p, nil
	case resp.StatusCode >= 500:
		return Profile{}, ErrAuthServersUnreachable
	default:
		return Profile{}, ErrInvalidSession
	}
}
