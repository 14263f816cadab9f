package shared

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// OwnerHeader carries the authenticated owner id set by the upstream proxy.
const OwnerHeader = "X-Owner-ID"

// ErrOwnerMissing indicates the request carried no usable owner id.
var ErrOwnerMissing = errors.New("owner id missing")

type ownerContextKey struct{}

// ContextWithOwner stores the owner id in context.
func ContextWithOwner(ctx context.Context, owner int64) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext extracts the owner id from context.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(int64)
	return owner, ok && owner > 0
}

// ParseOwner parses a header value into a positive owner id.
func ParseOwner(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrOwnerMissing
	}
	owner, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || owner <= 0 {
		return 0, ErrOwnerMissing
	}
	return owner, nil
}
