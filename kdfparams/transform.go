package kdfparams

import (
	"context"
	"fmt"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Transform applies the KDF named by p.UUID to compositeKey, returning
// the 32-byte transformed key (spec.md §4.9's "derive transformed key
// via the chosen KDF" step). ctx is threaded through to the
// cancellable primitives per spec.md §5.
func Transform(ctx context.Context, compositeKey []byte, p KDFParams) ([]byte, error) {
	switch p.UUID {
	case dbutils.KDFAES:
		out, err := cryptoutil.AESKDF(ctx, compositeKey, p.Salt, p.Rounds)
		if err != nil {
			return nil, wrapKDFErr(err)
		}
		return out, nil
	case dbutils.KDFArgon2d, dbutils.KDFArgon2id:
		ap := cryptoutil.Argon2Params{
			Salt:        p.Salt,
			Parallelism: uint8(p.Parallelism),
			Memory:      uint32(p.Memory / 1024), // spec M is bytes; x/crypto argon2 wants KiB
			Iterations:  uint32(p.Iterations),
			Version:     uint8(p.Version),
			Secret:      p.SecretKey,
			AssocData:   p.AssocData,
		}
		var out []byte
		var err error
		if p.UUID == dbutils.KDFArgon2d {
			out, err = cryptoutil.Argon2d(ctx, compositeKey, ap)
		} else {
			out, err = cryptoutil.Argon2id(ctx, compositeKey, ap)
		}
		if err != nil {
			return nil, wrapKDFErr(err)
		}
		return out, nil
	default:
		return nil, kderr.New(kderr.UnsupportedKDF, fmt.Sprintf("unknown KDF uuid %s", p.UUID.Base64()))
	}
}

func wrapKDFErr(err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return kderr.Wrap(kderr.Cancelled, err)
	}
	return kderr.Wrap(kderr.UnsupportedKDF, err)
}
