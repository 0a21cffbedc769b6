package auth

import "time"

// Strategy parses (and, for tests and tooling, issues) the signed principal
// tokens minted by the external auth service. Login and credential storage
// live outside this system; only attribution happens here.
type Strategy interface {
	IssueToken(userID int64) (string, error)
	ParseToken(token string) (int64, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
