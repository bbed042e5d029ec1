// Package snapshot implements the versioned envelope format used for backup
// files and remote sync blobs. Encoding and decoding are pure: the codec never
// touches the progress store, and a payload that fails authentication or
// structural validation is rejected before any of it is exposed.
package snapshot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/skondo/wordkeep/internal/progress"
)

const (
	// FormatVersion is the envelope version this codec writes.
	FormatVersion = 2
	// minSupportedVersion is the oldest envelope version this codec reads.
	minSupportedVersion = 1

	// header is mixed into the GCM additional data so an attacker cannot
	// splice an authenticated payload under a rewritten envelope header.
	header = "WKBK"

	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	// ErrAuthenticationFailed means the ciphertext or envelope header failed
	// integrity verification, including decryption with a wrong passphrase.
	ErrAuthenticationFailed = errors.New("snapshot authentication failed")
	// ErrMalformed means the envelope is structurally corrupt.
	ErrMalformed = errors.New("malformed snapshot")
	// ErrPassphraseRequired means an encrypted envelope was decoded without a key.
	ErrPassphraseRequired = errors.New("snapshot is encrypted and requires a passphrase")
)

// UnsupportedVersionError reports an envelope produced by a newer format than
// this codec understands.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported snapshot format version %d (supported: %d..%d)",
		e.Version, minSupportedVersion, FormatVersion)
}

// Payload is the snapshot content: a copy of the review record set plus the
// auxiliary study counters.
type Payload struct {
	Items   []progress.Item         `json:"items,omitempty" yaml:"items,omitempty"`
	Records []progress.ReviewRecord `json:"records" yaml:"records"`
	Stats   *progress.Stats         `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Envelope is the on-disk and on-wire form of a snapshot.
type Envelope struct {
	FormatVersion int             `json:"format_version"`
	CreatedAt     time.Time       `json:"created_at"`
	Encrypted     bool            `json:"encrypted"`
	Checksum      uint32          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

// Info is the envelope metadata readable without the payload key.
type Info struct {
	FormatVersion int
	CreatedAt     time.Time
	Encrypted     bool
}

// Codec encodes and decodes snapshot envelopes. The zero value is not usable;
// construct with New.
type Codec struct {
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithNow overrides the clock used to stamp CreatedAt, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeOptions controls envelope production.
type EncodeOptions struct {
	// Encrypt protects the payload with AES-256-GCM under a key derived from
	// Passphrase.
	Encrypt    bool
	Passphrase string
	// CreatedAt overrides the envelope timestamp. The zero value stamps the
	// current time.
	CreatedAt time.Time
}

// Encode serializes the payload into an envelope.
func (c *Codec) Encode(payload Payload, opts EncodeOptions) ([]byte, error) {
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}
	createdAt = createdAt.UTC().Truncate(time.Millisecond)

	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(payload) > %w", err)
	}

	env := Envelope{
		FormatVersion: FormatVersion,
		CreatedAt:     createdAt,
		Encrypted:     opts.Encrypt,
		Checksum:      crc32.ChecksumIEEE(plain),
	}

	if !opts.Encrypt {
		env.Payload = plain
		return marshalEnvelope(env)
	}

	if opts.Passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("rand.Read(salt) > %w", err)
	}
	aead, err := newAEAD(opts.Passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("rand.Read(nonce) > %w", err)
	}

	sealed := aead.Seal(nil, nonce, plain, additionalData(env))
	blob := make([]byte, 0, saltSize+nonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	encoded, err := json.Marshal(base64.StdEncoding.EncodeToString(blob))
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(ciphertext) > %w", err)
	}
	env.Payload = encoded
	return marshalEnvelope(env)
}

// Decode parses an envelope and returns its payload and metadata. An encrypted
// envelope whose authentication fails is rejected without exposing any
// plaintext.
func (c *Codec) Decode(data []byte, passphrase string) (Payload, Info, error) {
	env, err := parseEnvelope(data)
	if err != nil {
		return Payload{}, Info{}, err
	}
	info := Info{FormatVersion: env.FormatVersion, CreatedAt: env.CreatedAt, Encrypted: env.Encrypted}

	plain := []byte(env.Payload)
	if env.Encrypted {
		plain, err = c.decrypt(env, passphrase)
		if err != nil {
			return Payload{}, Info{}, err
		}
	}

	if crc32.ChecksumIEEE(plain) != env.Checksum {
		return Payload{}, Info{}, fmt.Errorf("%w: payload checksum mismatch", ErrMalformed)
	}

	var payload Payload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return Payload{}, Info{}, fmt.Errorf("%w: json.Unmarshal(payload) > %w", ErrMalformed, err)
	}
	return payload, info, nil
}

// Inspect returns the envelope metadata without decrypting the payload, so
// conflict timestamps can be compared before any key material is needed.
func (c *Codec) Inspect(data []byte) (Info, error) {
	env, err := parseEnvelope(data)
	if err != nil {
		return Info{}, err
	}
	return Info{FormatVersion: env.FormatVersion, CreatedAt: env.CreatedAt, Encrypted: env.Encrypted}, nil
}

func (c *Codec) decrypt(env Envelope, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	var encoded string
	if err := json.Unmarshal(env.Payload, &encoded); err != nil {
		return nil, fmt.Errorf("%w: encrypted payload is not a string", ErrMalformed)
	}
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64.DecodeString() > %w", ErrMalformed, err)
	}
	if len(blob) < saltSize+nonceSize+1 {
		return nil, fmt.Errorf("%w: encrypted payload too short", ErrMalformed)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed, additionalData(env))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plain, nil
}

func marshalEnvelope(env Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent(envelope) > %w", err)
	}
	return data, nil
}

func parseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: json.Unmarshal(envelope) > %w", ErrMalformed, err)
	}
	if env.FormatVersion > FormatVersion || env.FormatVersion < minSupportedVersion {
		return Envelope{}, &UnsupportedVersionError{Version: env.FormatVersion}
	}
	if len(env.Payload) == 0 {
		return Envelope{}, fmt.Errorf("%w: envelope has no payload", ErrMalformed)
	}
	return env, nil
}

// additionalData binds the envelope header fields into the GCM authentication
// so header tampering fails the same way ciphertext tampering does.
func additionalData(env Envelope) []byte {
	return fmt.Appendf(nil, "%s|%d|%d", header, env.FormatVersion, env.CreatedAt.UnixMilli())
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("scrypt.Key() > %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher() > %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM() > %w", err)
	}
	return aead, nil
}
