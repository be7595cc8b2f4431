package flickr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
)

// ShortURLPrefix is the base of flic.kr photo short links
const ShortURLPrefix = "https://flic.kr/p/"

var errZeroID = errors.New("photo id must be a positive integer")

// EncodeShortID converts a numeric photo id to its flic.kr short id
func EncodeShortID(id string) (string, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid photo id %q: %w", id, err)
	}
	if n == 0 {
		return "", errZeroID
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	for len(buf) > 1 && buf[0] == 0 {
		buf = buf[1:]
	}

	return base58.EncodeAlphabet(buf, base58.FlickrAlphabet), nil
}

// DecodeShortID converts a flic.kr short id back to the numeric photo id
func DecodeShortID(short string) (string, error) {
	short = strings.TrimSpace(short)
	if short == "" {
		return "", errors.New("empty short id")
	}

	raw, err := base58.DecodeAlphabet(short, base58.FlickrAlphabet)
	if err != nil {
		return "", fmt.Errorf("invalid short id %q: %w", short, err)
	}
	for len(raw) > 0 && raw[0] == 0 {
		raw = raw[1:]
	}
	if len(raw) > 8 {
		return "", fmt.Errorf("short id %q overflows a photo id", short)
	}

	var n uint64
	for _, b := range raw {
		n = n<<8 | uint64(b)
	}
	if n == 0 {
		return "", errZeroID
	}

	return strconv.FormatUint(n, 10), nil
}

// ShortURL returns the https://flic.kr/p/ link for a photo id
func ShortURL(id string) (string, error) {
	short, err := EncodeShortID(id)
	if err != nil {
		return "", err
	}
	return ShortURLPrefix + short, nil
}
