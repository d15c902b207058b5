// Package extcrypto provides hashing functions on strings: md5, sha1,
// sha256, sha512, hash($alg), hmac($key; $alg), and uuid.
//
// Digests are lowercase hex. MD5 and SHA-1 are meant for fingerprinting
// only.
package extcrypto

import (
	"context"
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // fingerprinting
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// All returns the functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		digest("md5"),
		digest("sha1"),
		digest("sha256"),
		digest("sha512"),
		Hash(),
		HMAC(),
		UUID(),
	}
}

// AllEntries returns All as entries for evaluator.WithFunctions.
func AllEntries() []functions.FunctionEntry {
	return extutil.Entries(All()...)
}

// digest builds an arity-0 function hashing its input with alg.
func digest(alg string) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: alg,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			s, err := extutil.String(alg, in)
			if err != nil {
				return nil, err
			}
			h, _ := newHasher(alg)
			h.Write([]byte(s))
			return value.String(hex.EncodeToString(h.Sum(nil))), nil
		},
	}
}

// Hash returns hash($alg). Supported algorithms are md5, sha1, sha256,
// sha384 and sha512.
func Hash() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "hash",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			s, err := extutil.String("hash", in)
			if err != nil {
				return nil, err
			}
			alg, err := extutil.String("hash", args[0])
			if err != nil {
				return nil, err
			}
			h, err := newHasher(strings.ToLower(alg))
			if err != nil {
				return nil, value.Thrown(value.String("hash: " + err.Error()))
			}
			h.Write([]byte(s))
			return value.String(hex.EncodeToString(h.Sum(nil))), nil
		},
	}
}

// HMAC returns hmac($key; $alg), the keyed digest of the input.
func HMAC() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "hmac",
		Arity: 2,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			s, err := extutil.String("hmac", in)
			if err != nil {
				return nil, err
			}
			key, err := extutil.String("hmac", args[0])
			if err != nil {
				return nil, err
			}
			alg, err := extutil.String("hmac", args[1])
			if err != nil {
				return nil, err
			}
			alg = strings.ToLower(alg)
			if _, err := newHasher(alg); err != nil {
				return nil, value.Thrown(value.String("hmac: " + err.Error()))
			}
			mac := hmac.New(func() hash.Hash {
				h, _ := newHasher(alg)
				return h
			}, []byte(key))
			mac.Write([]byte(s))
			return value.String(hex.EncodeToString(mac.Sum(nil))), nil
		},
	}
}

// UUID returns uuid: a random version 4 UUID. The input is ignored.
func UUID() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "uuid",
		Fn: func(_ context.Context, _ value.Value, _ ...value.Value) (value.Value, error) {
			var b [16]byte
			if _, err := rand.Read(b[:]); err != nil {
				return nil, fmt.Errorf("uuid: %w", err)
			}
			b[6] = (b[6] & 0x0f) | 0x40
			b[8] = (b[8] & 0x3f) | 0x80
			return value.String(fmt.Sprintf("%x-%x-%x-%x-%x",
				b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])), nil
		},
	}
}

func newHasher(alg string) (hash.Hash, error) {
	switch alg {
	case "md5":
		return md5.New(), nil //nolint:gosec
	case "sha1":
		return sha1.New(), nil //nolint:gosec
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
}
