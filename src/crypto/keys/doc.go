// Package keys implements the key material behind the simulated wallet
// identities.
//
// Every voting session is bound to a pseudonymous address derived from a
// fresh secp256k1 key-pair. We chose the secp256k1 curve because it is the
// one used by Bitcoin and Ethereum, which keeps the simulated addresses
// visually identical to real wallet addresses. Nothing is ever signed with
// these keys; they only exist to make the address derivation honest.
package keys
