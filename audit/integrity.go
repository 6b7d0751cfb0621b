package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

/* ========================================================================
 * Integrity hashing
 * ========================================================================
 * Each entry carries an HMAC-SHA256 over its payload fields keyed by a
 * server-held secret. Validation recomputes the mac; a mismatch is a
 * tampering signal and is never auto-corrected.
 *
 * Secret rotation is an operational event: entries written under a
 * previous secret will report a mismatch after rotation. Re-keying the
 * ledger means exporting and re-verifying against the retired secret,
 * not rewriting entries.
 * ======================================================================== */

// computeIntegrityHash returns the hex HMAC for an entry's payload fields.
func computeIntegrityHash(secret []byte, e *Entry) string {
	mac := hmac.New(sha256.New, secret)

	payload := strings.Join([]string{
		e.Operation,
		e.EntityType,
		e.EntityID,
		strconv.FormatInt(e.OperatorID, 10),
		e.OccurredAt.UTC().Format(time.RFC3339Nano),
		e.Before,
		e.After,
	}, "|")

	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyIntegrityHash recomputes the mac in constant time.
func verifyIntegrityHash(secret []byte, e *Entry) bool {
	expected := computeIntegrityHash(secret, e)
	return hmac.Equal([]byte(expected), []byte(e.IntegrityHash))
}
