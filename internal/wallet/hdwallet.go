package wallet

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// hardenedOffset is added to a BIP32 index to mark it hardened.
const hardenedOffset = uint32(0x80000000)

// standardPath is the BIP44 Ethereum account derivation path, m/44'/60'/0'/0/0.
var standardPath = []uint32{
	44 + hardenedOffset,
	60 + hardenedOffset,
	0 + hardenedOffset,
	0,
	0,
}

type extendedKey struct {
	key       *big.Int
	chainCode []byte
}

// deriveStandardAccount derives the standard m/44'/60'/0'/0/0 account's
// private key from a BIP39 seed, per BIP32/BIP44.
func deriveStandardAccount(seed []byte) (*ecdsa.PrivateKey, error) {
	cur, err := masterKey(seed)
	if err != nil {
		return nil, err
	}
	for _, index := range standardPath {
		cur, err = cur.child(index)
		if err != nil {
			return nil, err
		}
	}
	return keyFromScalar(cur.key)
}

func masterKey(seed []byte) (*extendedKey, error) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	i := mac.Sum(nil)
	il, ir := i[:32], i[32:]

	k := new(big.Int).SetBytes(il)
	if k.Sign() == 0 || k.Cmp(curveOrder()) >= 0 {
		return nil, fmt.Errorf("invalid master key derived from seed")
	}
	return &extendedKey{key: k, chainCode: ir}, nil
}

func (e *extendedKey) child(index uint32) (*extendedKey, error) {
	var data []byte
	if index&hardenedOffset != 0 {
		data = append(data, 0x00)
		data = append(data, ser256(e.key)...)
	} else {
		pub := pointFor(e.key)
		data = append(data, pub...)
	}
	data = append(data, ser32(index)...)

	mac := hmac.New(sha512.New, e.chainCode)
	mac.Write(data)
	i := mac.Sum(nil)
	il, ir := i[:32], i[32:]

	ilNum := new(big.Int).SetBytes(il)
	n := curveOrder()
	if ilNum.Cmp(n) >= 0 {
		return nil, fmt.Errorf("invalid child key at index %d", index)
	}
	ki := new(big.Int).Add(ilNum, e.key)
	ki.Mod(ki, n)
	if ki.Sign() == 0 {
		return nil, fmt.Errorf("derived zero child key at index %d", index)
	}
	return &extendedKey{key: ki, chainCode: ir}, nil
}

func pointFor(scalar *big.Int) []byte {
	priv, _ := btcec.PrivKeyFromBytes(ser256(scalar))
	return priv.PubKey().SerializeCompressed()
}

func curveOrder() *big.Int {
	return btcec.S256().N
}

func ser256(k *big.Int) []byte {
	b := k.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func ser32(i uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, i)
	return out
}

func keyFromScalar(k *big.Int) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(ser256(k))
}
