// derive_key.go prints the public key and address for a hex-encoded key pair
// file in the [tag][secret] form.
// Usage: go run scripts/derive_key.go <keyfile>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kp, err := crypto.KeyPairFromBytes(keyBytes)
	clear(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer kp.Zero()

	pub := kp.PublicKey()
	fmt.Printf("network=%s\n", pub.Tag().Network)
	fmt.Printf("keytype=%s\n", pub.KeyType())
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(pub.Key()))
	fmt.Printf("address=%s\n", pub.String())
}
