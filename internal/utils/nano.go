package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	NanoidSize     = 32
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// reference numbers are read aloud at the counter, so no lookalike characters
	referenceSize     = 10
	referenceAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// ReferenceID returns an applicant-facing id such as "BUS-7K2M9QX4TA".
func ReferenceID(prefix string) string {
	id := gonanoid.MustGenerate(referenceAlphabet, referenceSize)
	if prefix == "" {
		return id
	}

	return strings.ToUpper(prefix) + "-" + id
}
