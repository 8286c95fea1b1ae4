package solana

import "context"

// RPCClient defines the read-only Solana RPC surface used for account queries.
type RPCClient interface {
	// GetProgramAccounts returns every account owned by programID matching all filters.
	GetProgramAccounts(ctx context.Context, programID PublicKey, filters ...Filter) ([]KeyedAccount, error)

	// GetAccountInfo retrieves an account. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, address PublicKey) (*AccountInfo, error)

	// GetMultipleAccounts retrieves accounts in request order; missing accounts are nil.
	GetMultipleAccounts(ctx context.Context, addresses []PublicKey) ([]*AccountInfo, error)
}

// Commitment is the bank state level queried.
type Commitment string

// Supported commitment levels.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountInfo represents a decoded Solana account.
type AccountInfo struct {
	Lamports   uint64
	Owner      PublicKey
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// KeyedAccount is an account together with its address.
type KeyedAccount struct {
	Address PublicKey
	Account AccountInfo
}
