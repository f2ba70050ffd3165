package repo

const (
	AppName = "TokenLedger"

	// CfgFileName is the default config name
	CfgFileName = "config.toml"

	genesisCfgFileName = "genesis.toml"

	// defaultRepoRoot is the path to the default config dir location.
	defaultRepoRoot = "~/.token-ledger"

	// rootPathEnvVar is the environment variable used to change the path root.
	rootPathEnvVar = "TOKEN_LEDGER_PATH"

	pidFileName = "running.pid"

	LogsDirName = "logs"

	envPrefix        = "TOKEN_LEDGER"
	genesisEnvPrefix = "TOKEN_LEDGER_GENESIS"
)

const (
	KVStorageTypeMemory  = "memory"
	KVStorageTypeLeveldb = "leveldb"
	KVStorageTypePebble  = "pebble"
	KVStorageCacheSize   = 16
	KVStorageSync        = true
)

const (
	// DefaultDeployer deploys the token at genesis and receives the initial supply.
	DefaultDeployer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	// DefaultInitialSupply is 1 billion base units.
	DefaultInitialSupply = "1000000000"
)
