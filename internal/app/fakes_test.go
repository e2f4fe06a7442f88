package app_test

import (
	"monobook/internal/app/apptest"
)

type (
	memStore     = apptest.MemStore
	fakeSemantic = apptest.Semantic
)

var (
	fixedNow   = apptest.FixedNow
	today      = apptest.Today
	dateStr    = apptest.DateStr
	onDay      = apptest.OnDay
	pstr       = apptest.Str
	pint       = apptest.Int
	pf64       = apptest.F64
	newFixture = apptest.NewFixture
	newDeps    = apptest.NewDeps
	errCode    = apptest.ErrCode
)
