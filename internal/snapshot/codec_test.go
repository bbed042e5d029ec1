package snapshot

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skondo/wordkeep/internal/progress"
)

func fixedNow() time.Time {
	return time.Date(2025, 4, 10, 12, 30, 0, 0, time.UTC)
}

func testPayload(t *testing.T) Payload {
	t.Helper()

	reviewedAt := time.Date(2025, 4, 9, 8, 0, 0, 0, time.UTC)
	return Payload{
		Items: []progress.Item{
			{ID: "w1", Expression: "break the ice", Meaning: "to initiate social interaction", CreatedAt: reviewedAt},
			{ID: "w2", Expression: "eager", Meaning: "wanting to do something very much", CreatedAt: reviewedAt},
		},
		Records: []progress.ReviewRecord{
			{
				ItemID: "w1", EaseFactor: 2.6, IntervalDays: 6, Repetitions: 2,
				NextDueAt: reviewedAt.AddDate(0, 0, 6), LastReviewedAt: &reviewedAt,
				TotalReviews: 4, CorrectReviews: 3,
			},
			{
				ItemID: "w2", EaseFactor: 1.3, IntervalDays: 0, Repetitions: 0,
				NextDueAt: reviewedAt.Add(10 * time.Minute),
				TotalReviews: 0, CorrectReviews: 0,
			},
		},
		Stats: &progress.Stats{StreakDays: 3, LastStudyDate: "2025-04-09", DailyGoal: 20, ReviewsToday: 7},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := New(WithNow(fixedNow))
	payload := testPayload(t)

	tests := []struct {
		name string
		opts EncodeOptions
		key  string
	}{
		{name: "plain"},
		{
			name: "encrypted",
			opts: EncodeOptions{Encrypt: true, Passphrase: "correct horse"},
			key:  "correct horse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(payload, tt.opts)
			require.NoError(t, err)

			got, info, err := codec.Decode(data, tt.key)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
			assert.Equal(t, FormatVersion, info.FormatVersion)
			assert.Equal(t, fixedNow(), info.CreatedAt)
			assert.Equal(t, tt.opts.Encrypt, info.Encrypted)
		})
	}
}

func TestCodecStampsExplicitCreatedAt(t *testing.T) {
	codec := New(WithNow(fixedNow))
	createdAt := time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)

	data, err := codec.Encode(testPayload(t), EncodeOptions{CreatedAt: createdAt})
	require.NoError(t, err)

	info, err := codec.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, createdAt, info.CreatedAt)
}

func TestCodecDecodeWrongPassphrase(t *testing.T) {
	codec := New(WithNow(fixedNow))
	data, err := codec.Encode(testPayload(t), EncodeOptions{Encrypt: true, Passphrase: "right"})
	require.NoError(t, err)

	_, _, err = codec.Decode(data, "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = codec.Decode(data, "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestCodecDecodeFailsClosedOnBitFlips(t *testing.T) {
	codec := New(WithNow(fixedNow))
	data, err := codec.Encode(testPayload(t), EncodeOptions{Encrypt: true, Passphrase: "secret"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	var encoded string
	require.NoError(t, json.Unmarshal(env.Payload, &encoded))
	blob, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// Flip one bit at a time across the ciphertext and tag region. Every
	// mutation must be rejected as an authentication failure, never decoded.
	for offset := 28; offset < len(blob); offset += 7 {
		corrupted := make([]byte, len(blob))
		copy(corrupted, blob)
		corrupted[offset] ^= 0x01

		mutated := env
		reencoded, err := json.Marshal(base64.StdEncoding.EncodeToString(corrupted))
		require.NoError(t, err)
		mutated.Payload = reencoded
		raw, err := json.Marshal(mutated)
		require.NoError(t, err)

		_, _, err = codec.Decode(raw, "secret")
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "bit flip at offset %d", offset)
	}
}

func TestCodecDecodeRejectsHeaderTampering(t *testing.T) {
	codec := New(WithNow(fixedNow))
	data, err := codec.Encode(testPayload(t), EncodeOptions{Encrypt: true, Passphrase: "secret"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.CreatedAt = env.CreatedAt.Add(time.Hour)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	_, _, err = codec.Decode(raw, "secret")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestCodecDecodeUnsupportedVersion(t *testing.T) {
	codec := New(WithNow(fixedNow))
	data, err := codec.Encode(testPayload(t), EncodeOptions{})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.FormatVersion = FormatVersion + 1
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	_, _, err = codec.Decode(raw, "")
	var versionErr *UnsupportedVersionError
	require.ErrorAs(t, err, &versionErr)
	assert.Equal(t, FormatVersion+1, versionErr.Version)
}

func TestCodecDecodeMalformed(t *testing.T) {
	codec := New(WithNow(fixedNow))

	valid, err := codec.Encode(testPayload(t), EncodeOptions{})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(valid, &env))
	env.Checksum++
	badChecksum, err := json.Marshal(env)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not json", data: []byte("definitely not an envelope")},
		{name: "empty payload", data: []byte(`{"format_version":2,"created_at":"2025-04-10T12:30:00Z"}`)},
		{name: "checksum mismatch", data: badChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.Decode(tt.data, "")
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCodecEncryptRequiresPassphrase(t *testing.T) {
	codec := New(WithNow(fixedNow))
	_, err := codec.Encode(testPayload(t), EncodeOptions{Encrypt: true})
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}
