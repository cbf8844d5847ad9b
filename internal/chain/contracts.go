package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// NativeToken denotes the chain's native asset wherever a payment token
// address is expected.
var NativeToken = common.Address{}

// DefaultLicenseTokenID is the token id that stands for "owns this game"
// inside every license contract.
var DefaultLicenseTokenID = big.NewInt(1)

const registryABIJSON = `[
  {"type":"function","name":"getGame","stateMutability":"view",
   "inputs":[{"name":"gameId","type":"bytes32"}],
   "outputs":[{"name":"game","type":"tuple","components":[
     {"name":"license","type":"address"},
     {"name":"publisher","type":"address"},
     {"name":"createdAt","type":"uint64"},
     {"name":"active","type":"bool"}]}]},
  {"type":"event","name":"GameRegistered","anonymous":false,
   "inputs":[{"name":"gameId","type":"bytes32","indexed":true},
             {"name":"license","type":"address","indexed":true},
             {"name":"publisher","type":"address","indexed":true}]},
  {"type":"event","name":"GameStatusChanged","anonymous":false,
   "inputs":[{"name":"gameId","type":"bytes32","indexed":true},
             {"name":"active","type":"bool","indexed":false}]}
]`

const licenseABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"price","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"paymentToken","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"buy","stateMutability":"payable",
   "inputs":[],"outputs":[]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"allowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var (
	RegistryABI = mustParseABI(registryABIJSON)
	LicenseABI  = mustParseABI(licenseABIJSON)
	ERC20ABI    = mustParseABI(erc20ABIJSON)

	// GameRegisteredTopic is topic[0] of every GameRegistered log.
	GameRegisteredTopic = RegistryABI.Events["GameRegistered"].ID
)

func mustParseABI(s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return &parsed
}
