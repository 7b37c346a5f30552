package auth

import "time"

// Strategy issues and validates merchant API tokens.
type Strategy interface {
	IssueToken(merchantCode string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
