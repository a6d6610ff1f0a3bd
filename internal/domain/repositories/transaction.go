package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Share runs use one
// transaction per recipient: the page save, the participation write and the
// audit event commit together or not at all. The batch as a whole is not
// atomic.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
