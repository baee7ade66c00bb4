package bookings

import (
	"fmt"
	"strings"

	hashids "github.com/speps/go-hashids/v2"
)

// ReferenceCoder turns numeric booking IDs into short, non-guessable codes
// like CR-J4K9Q2 that customers can read over the phone.
type ReferenceCoder struct {
	h *hashids.HashID
}

const referencePrefix = "CR-"

func NewReferenceCoder(salt string) (*ReferenceCoder, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 6
	// no lowercase and no easily confused characters
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("init reference coder: %w", err)
	}
	return &ReferenceCoder{h: h}, nil
}

func (c *ReferenceCoder) Encode(bookingID int64) (string, error) {
	code, err := c.h.EncodeInt64([]int64{bookingID})
	if err != nil {
		return "", fmt.Errorf("encode booking reference: %w", err)
	}
	return referencePrefix + code, nil
}

func (c *ReferenceCoder) Decode(reference string) (int64, error) {
	code := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(reference)), referencePrefix)
	ids, err := c.h.DecodeInt64WithError(code)
	if err != nil || len(ids) != 1 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}
