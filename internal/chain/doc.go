// Package chain is the blockchain boundary of gamevault.
//
// # Overview
//
// The package provides:
//  1. Reader and Wallet, the read and write surfaces the rest of the client
//     consumes. Reader wraps a JSON-RPC node (block number, logs, contract
//     calls); Wallet wraps a signer (accounts, chain switch, simulate, send).
//  2. Scanner, which fetches event logs over an arbitrary block range by
//     splitting it into bounded windows queried one after another.
//  3. Concrete go-ethereum implementations: RPCReader over ethclient and
//     KeyWallet, a private-key signer for headless use.
//  4. The contract ABIs the client talks to (registry, license, ERC-20).
//
// # Error Handling
//
// Read failures surface as common.ErrRPCFailed; values that cannot be decoded
// are reported by the caller that knows what shape it expected.
package chain
