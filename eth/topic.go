package eth

import "golang.org/x/crypto/sha3"

// Topic returns the Keccak-256 hash of an event signature such as
// "Transfer(address,address,uint256)", i.e. the value of topic 0.
func Topic(signature string) Hash {
	var h Hash
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(signature))
	d.Sum(h[:0])
	return h
}
