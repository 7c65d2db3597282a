package domain

import (
	"crypto/rand"
	"math/big"
)

const (
	docIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	docIDLength   = 20
)

// NewDocID generates an identifier in the same shape as Firestore
// auto-generated document ids: 20 characters of [A-Za-z0-9].
func NewDocID() (string, error) {
	b := make([]byte, docIDLength)
	max := big.NewInt(int64(len(docIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = docIDAlphabet[n.Int64()]
	}
	return string(b), nil
}
