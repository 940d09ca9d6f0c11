package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCommit separates commit digests from any other hash the project may
// compute over the same bytes.
const DomainCommit = "loom/commit/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content-addressed identity of a commit's op list.
// Sequence numbers are excluded; order is not.
func Digest(ops []Op) (string, error) {
	if ops == nil {
		ops = []Op{}
	}
	canonical, err := MarshalCanonical(ops)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainCommit, canonical), nil
}

// MustDigest is like Digest but panics on error.
// Op lists only hold strings, so this cannot fail in practice.
func MustDigest(ops []Op) string {
	d, err := Digest(ops)
	if err != nil {
		panic(err)
	}
	return d
}

// DomainCommitID separates stored commit identities from op-list digests.
const DomainCommitID = "loom/commit-id/v1"

// CommitID computes the stored identity of one commit in one session.
// The same op list committed at the same generation of the same session
// always gets the same id, which makes re-recording a session idempotent.
func CommitID(sessionID string, generation int64, digest string) (string, error) {
	canonical, err := MarshalCanonical([]any{sessionID, generation, digest})
	if err != nil {
		return "", fmt.Errorf("commit id: %w", err)
	}
	return hashWithDomain(DomainCommitID, canonical), nil
}
