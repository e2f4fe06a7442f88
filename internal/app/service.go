package app

import (
	"time"

	"monobook/internal/domain"
)

// Deps are the collaborators shared by the search and booking services.
type Deps struct {
	Store    domain.Store
	Semantic domain.SemanticSearcher
	Currency *CurrencyService
	Auditor  *Auditor
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func (d Deps) today() time.Time {
	if d.Now == nil {
		return Today(time.Now())
	}
	return Today(d.Now())
}
