/*
 * Copyright 2020 Tero Vierimaa
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pandora

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// Android partner app keys (ground: original_source/src/pandora/api.rs
// PartnerKeys::new_android). These are the keys the stock Android client
// uses and are public knowledge for anyone implementing a Pandora client;
// they are not a secret belonging to this module.
const (
	partnerEncryptKey = "6#26FRL$ZWD"
	partnerDecryptKey = "R=U!LH$O2B#"

	partnerUsername = "android"
	partnerPassword  = "AC7IBG09A3DTSYM4R41UJWL07VLN8JI7"
	deviceModel      = "android-generic"
	apiVersion       = "5"
)

// blowfishEncryptECB encrypts plaintext with blowfish in ECB mode, PKCS#7
// padded to the 8-byte block size, returning the hex-encoded ciphertext —
// the encoding Pandora's JSON API expects for the encrypted request body.
func blowfishEncryptECB(key, plaintext string) (string, error) {
	cipher, err := blowfish.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("blowfish cipher: %w", err)
	}

	data := pkcs7Pad([]byte(plaintext), blowfish.BlockSize)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += blowfish.BlockSize {
		cipher.Encrypt(out[i:i+blowfish.BlockSize], data[i:i+blowfish.BlockSize])
	}
	return hex.EncodeToString(out), nil
}

// blowfishDecryptECB reverses blowfishEncryptECB.
func blowfishDecryptECB(key, hexCiphertext string) (string, error) {
	raw, err := hex.DecodeString(hexCiphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) == 0 || len(raw)%blowfish.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d not a multiple of block size %d", len(raw), blowfish.BlockSize)
	}

	cipher, err := blowfish.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("blowfish cipher: %w", err)
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += blowfish.BlockSize {
		cipher.Decrypt(out[i:i+blowfish.BlockSize], raw[i:i+blowfish.BlockSize])
	}
	return string(pkcs7Unpad(out)), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	padLen := int(data[len(data)-1])
	if padLen <= 0 || padLen > len(data) {
		return data
	}
	return data[:len(data)-padLen]
}
