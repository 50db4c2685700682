package crypto

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// GenerateOTP returns a 6-digit numeric code uniformly sampled from
// [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
