// Package main hosts the romverify CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the catalog cache and
// the identification pipeline together. Commands stay thin: classification,
// hashing, matching and catalog handling live in internal packages.
package main
