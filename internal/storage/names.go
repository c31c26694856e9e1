package storage

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"os"
)

const (
	nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	prefixLen    = 6

	// MaxNameAttempts bounds how many random prefixes are tried for one
	// upload before giving up.
	MaxNameAttempts = 64
)

// Largest multiple of len(nameAlphabet) that fits in a byte; bytes at or
// above it are discarded so every character is equally likely.
const rejectAbove = 256 - 256%len(nameAlphabet)

func randomPrefix() (string, error) {
	out := make([]byte, 0, prefixLen)
	buf := make([]byte, 2*prefixLen)
	for len(out) < prefixLen {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, nameAlphabet[int(b)%len(nameAlphabet)])
			if len(out) == prefixLen {
				break
			}
		}
	}
	return string(out), nil
}

// candidate builds "<prefix>.<ext>". An empty ext leaves a trailing dot.
func (s *Store) candidate(ext string) (string, error) {
	p, err := s.prefix()
	if err != nil {
		return "", err
	}
	return p + "." + ext, nil
}

// GenerateName returns a random name with the given extension that does not
// exist in the store at the time of the call.
func (s *Store) GenerateName(ext string) (string, error) {
	for attempt := 0; attempt < MaxNameAttempts; attempt++ {
		name, err := s.candidate(ext)
		if err != nil {
			return "", err
		}
		full, err := s.Path(name)
		if err != nil {
			return "", err
		}
		_, err = os.Lstat(full)
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrNamesExhausted
}
