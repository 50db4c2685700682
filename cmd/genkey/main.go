package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

func main() {
	key := make([]byte, 24)
	iv := make([]byte, 8)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	if _, err := rand.Read(iv); err != nil {
		panic(err)
	}

	fmt.Printf("KEY_3DES=%s\n", base64.StdEncoding.EncodeToString(key))
	fmt.Printf("IV_3DES=%s\n", base64.StdEncoding.EncodeToString(iv))
}
