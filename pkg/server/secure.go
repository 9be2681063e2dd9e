package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

var errKeyring = errors.New("secure keyring not initialized")

// keyring holds the ephemeral RSA key browsers use to encrypt secret
// fields such as the card number before they leave the page.
type keyring struct {
	mu    sync.RWMutex
	keyID string
	priv  *rsa.PrivateKey
}

func (k *keyring) init() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv != nil {
		return nil
	}
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	k.keyID = "k-" + uuid.NewString()
	k.priv = priv
	return nil
}

// publicKey returns the key id and the base64 SPKI encoding of the public key.
func (k *keyring) publicKey() (string, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return "", "", errKeyring
	}
	der, err := x509.MarshalPKIXPublicKey(&k.priv.PublicKey)
	if err != nil {
		return "", "", err
	}
	return k.keyID, base64.StdEncoding.EncodeToString(der), nil
}

func (k *keyring) decrypt(ciphertextB64, keyID string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return "", errKeyring
	}
	if keyID != "" && keyID != k.keyID {
		return "", fmt.Errorf("unknown key id")
	}
	ct, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding")
	}
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.priv, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt failed")
	}
	return string(pt), nil
}

// decryptFields decrypts in place any string fields tagged
// `secure:"rsa_oaep_b64"`, reading the key id from the field named by the
// optional `secure_key` tag.
func (k *keyring) decryptFields(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decryptFields expects a pointer to struct")
	}
	v := rv.Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" || sf.Tag.Get("secure") != "rsa_oaep_b64" {
			continue
		}
		f := v.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() || f.String() == "" {
			continue
		}
		keyID := ""
		if name := sf.Tag.Get("secure_key"); name != "" {
			if kf := v.FieldByName(name); kf.IsValid() && kf.Kind() == reflect.String {
				keyID = kf.String()
			}
		}
		plain, err := k.decrypt(f.String(), keyID)
		if err != nil {
			return err
		}
		f.SetString(plain)
	}
	return nil
}
