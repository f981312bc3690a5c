package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the use case layer
var (
	ErrNoSiteAddress = goerr.New("project has no site address")
	ErrISOUnknown    = goerr.New("project ISO/RTO could not be determined")

	// Service availability errors: the server was started without the
	// credentials or stores this operation needs
	ErrLocatorUnavailable     = goerr.New("locator service not configured")
	ErrMarketCacheUnavailable = goerr.New("market data cache not configured")
	ErrCatalogUnavailable     = goerr.New("incentive catalog not configured")
	ErrPUDLUnavailable        = goerr.New("PUDL store not configured")

	ErrNoRevenueStreams = goerr.New("no revenue streams to underwrite")
)
