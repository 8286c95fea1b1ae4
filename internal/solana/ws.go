package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeProgram streams account changes for accounts owned by a program.
	SubscribeProgram(ctx context.Context, sub ProgramSubscription) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// ProgramSubscription selects which program-owned accounts to stream.
type ProgramSubscription struct {
	ProgramID PublicKey
	Filters   []Filter
}

// AccountNotification is a single programNotification message.
type AccountNotification struct {
	Slot    int64
	Address PublicKey
	Account AccountInfo
}
