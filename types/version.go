package types

// Version is the canonical project version.
// The CLI, the tag contract and the notification contract share this version.
const Version = "0.3.0"

// TagContractVersion identifies the layout of the reserved provenance tags.
// Bump when the tag keys or the logical version derivation change.
const TagContractVersion = "1"
