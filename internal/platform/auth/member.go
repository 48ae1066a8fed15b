package auth

import (
	"context"

	"github.com/cbg-gallery/portal/internal/domain"
)

type contextKey string

const memberContextKey contextKey = "github.com/cbg-gallery/portal/internal/platform/auth/member"

// WithMember stores the authenticated member within the context for downstream handlers.
func WithMember(ctx context.Context, member domain.Member) context.Context {
	return context.WithValue(ctx, memberContextKey, member)
}

// MemberFromContext retrieves the member previously stored in context.
func MemberFromContext(ctx context.Context) (domain.Member, bool) {
	if ctx == nil {
		return domain.Member{}, false
	}
	member, ok := ctx.Value(memberContextKey).(domain.Member)
	if !ok || member.ID == "" {
		return domain.Member{}, false
	}
	return member, true
}
