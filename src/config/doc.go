// Package config defines the configuration of a voting node.
//
// The Config object regroups all the options of the node: where the local
// cache lives, whether it is persisted, the address of the HTTP service, the
// connection string of the optional remote store, and the duration of the
// simulated mining window. It is populated by the run command from CLI flags
// and an optional voto.toml file in the data directory, and handed down to
// every other component.
package config
