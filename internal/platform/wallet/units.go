package wallet

import (
	"fmt"
	"math"
	"regexp"
)

// MistPerSui is the number of MIST in one SUI.
const MistPerSui = 1_000_000_000

// SuiCoinType is the coin type queried for balances.
const SuiCoinType = "0x2::sui::SUI"

const DefaultNetwork = "testnet"

// Networks maps network names to their public fullnode endpoints.
var Networks = map[string]string{
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

// SuiToMist converts an amount in SUI to MIST, rounded to the nearest MIST.
// Negative amounts convert to zero.
func SuiToMist(sui float64) uint64 {
	if sui <= 0 {
		return 0
	}
	return uint64(math.Round(sui * MistPerSui))
}

func MistToSui(mist uint64) float64 {
	return float64(mist) / MistPerSui
}

// FormatAddress shortens addresses longer than ten characters to
// 0x1234...abcd.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// FullnodeURL returns the RPC endpoint of network.
func FullnodeURL(network string) (string, bool) {
	url, ok := Networks[network]
	return url, ok
}

// ExplorerTxURL links a transaction digest in the public explorer.
func ExplorerTxURL(digest, network string) string {
	return fmt.Sprintf("https://suiexplorer.com/txblock/%s?network=%s", digest, network)
}

// ExplorerAddressURL links an account in the public explorer.
func ExplorerAddressURL(address, network string) string {
	return fmt.Sprintf("https://suiexplorer.com/address/%s?network=%s", address, network)
}
