package teaconst

const (
	Version = "1.0.0"

	ProductName = "Edge NFT"
	ProcessName = "edge-nft"

	Role = "nft"

	// DefaultTableName table managed by edge-nft when a ruleset does not name one
	DefaultTableName = "edge_nft"
)
