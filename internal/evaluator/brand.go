package evaluator

import "context"

// BrandChecker reports whether a brand search surfaces the domain. It only
// feeds the authority estimate when no authority API is configured.
type BrandChecker func(ctx context.Context, brand, domain string) bool

// NoBrandPresence is the default BrandChecker. Without a SERP query budget
// for brand searches, presence cannot be verified and is assumed absent.
func NoBrandPresence(context.Context, string, string) bool {
	return false
}
