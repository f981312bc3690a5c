package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for model validation
var (
	ErrMissingProjectName = goerr.New("project name is required")
	ErrInvalidInterval    = goerr.New("interval must be 15, 30, or 60 minutes")
	ErrMissingMeterIDs    = goerr.New("per-meter projects require at least one meter ID")
	ErrInvalidCoverage    = goerr.New("load coverage end precedes start")
	ErrInvalidHaircut     = goerr.New("haircut fraction must be within [0, 1]")
)
