package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
)

// hmacKey is generated once per process so that SecureCompare's timing
// cannot be mounted offline against a fixed key: every process restart
// invalidates any timing profile collected against the previous one.
var hmacKey = func() []byte {
	k := make([]byte, 32)
	if _, err := rand.Read(k); err != nil {
		panic("cryptoutil: failed to seed comparison key: " + err.Error())
	}
	return k
}()

// SecureCompare reports whether a and b are equal without leaking timing
// information about either the content or the length of a, the presented
// value; b is the reference value.
// subtle.ConstantTimeCompare alone is constant-time only for equal-length
// inputs; padding or truncating a to len(b) before HMAC-ing both operands
// to fixed-size digests, and comparing the lengths separately, makes the
// work depend on len(b) only.
func SecureCompare(a, b string) bool {
	padded := make([]byte, len(b))
	copy(padded, a)
	macA := hmac.New(sha256.New, hmacKey)
	macA.Write(padded)
	macB := hmac.New(sha256.New, hmacKey)
	macB.Write([]byte(b))
	digestsEqual := subtle.ConstantTimeCompare(macA.Sum(nil), macB.Sum(nil))
	lengthsEqual := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	return digestsEqual&lengthsEqual == 1
}
