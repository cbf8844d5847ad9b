// Package cli is the interactive gamevault client.
//
// NewApp wires configuration, the local session store, the backend
// transport and the chain components; App.Run starts a REPL that blocks
// until the user exits.
//
// Commands:
//   - login / logout / whoami
//   - library                          games owned by the signed-in account
//   - buy <game id|license> [token]     submit a purchase
//   - wait <tx hash>                    wait for a transaction to be mined
//   - request <METHOD> <path> [json]    call the backend with the session
package cli
