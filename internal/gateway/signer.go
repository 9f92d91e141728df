package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
)

// Signer computes the merchant signature over redirect parameters. Signing
// schemes differ per gateway contract, so the capability is pluggable; the
// shipped implementation is the HMAC-SHA256 scheme over the sorted
// key/value list.
type Signer interface {
	Sign(params map[string]string) (string, error)
}

// HMACSigner signs parameters with a shared HMAC key from the merchant
// configuration.
type HMACSigner struct {
	key []byte
}

// NewHMACSigner creates a signer for the given shared key.
func NewHMACSigner(key string) *HMACSigner {
	return &HMACSigner{key: []byte(key)}
}

// Sign produces a base64 HMAC-SHA256 signature over the parameters, keys
// sorted, keys then values concatenated with ":" and embedded ":" escaped.
func (s *HMACSigner) Sign(params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, escape(k))
	}
	for _, k := range keys {
		parts = append(parts, escape(params[k]))
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(strings.Join(parts, ":")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, ":", `\:`)
}
