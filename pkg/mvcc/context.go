package mvcc

import "context"

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var txnKey = key{}

// WithTransaction returns a new context carrying txn so that Join can find it.
func WithTransaction(ctx context.Context, txn *Transaction) context.Context {
	return context.WithValue(ctx, txnKey, txn)
}

// FromContext extracts the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (*Transaction, bool) {
	txn, ok := ctx.Value(txnKey).(*Transaction)
	return txn, ok && txn != nil
}

// WithoutTransaction returns a context that keeps the values and deadline of ctx
// but hides any transaction it carries.
func WithoutTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txnKey, (*Transaction)(nil))
}
