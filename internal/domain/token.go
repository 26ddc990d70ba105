package domain

// TokenMetadata describes a registered fungible (ERC-20-like) token.
// Records are created once at successful registration and are immutable
// afterwards; removal is the only destructive operation.
// Corresponds to token_registry table in PostgreSQL.
type TokenMetadata struct {
	Address      Address // canonical lowercase form, unique
	Symbol       string  // "?" when the symbol query failed or was undecodable
	Decimals     uint8   // defaults to 18 when undecodable
	RegisteredAt int64   // Unix timestamp in milliseconds
}

// NFTMetadata describes a registered non-fungible (ERC-721-like) contract.
// Name and Symbol are looked up best-effort per field; either may be "?"
// while the record is still considered complete.
// Corresponds to nft_registry table in PostgreSQL.
type NFTMetadata struct {
	Address      Address // canonical lowercase form, unique
	Name         string
	Symbol       string
	RegisteredAt int64 // Unix timestamp in milliseconds
}
