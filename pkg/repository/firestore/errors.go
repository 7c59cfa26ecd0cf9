package firestore

import "github.com/sitefix-lab/sitefix/pkg/domain/interfaces"

var (
	ErrNotFound     = interfaces.ErrNotFound
	ErrDuplicateKey = interfaces.ErrDuplicateKey
)
