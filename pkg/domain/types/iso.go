package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ISO identifies an ISO/RTO or, for non-market regions, a NERC-derived region
type ISO string

const (
	ISOPJM   ISO = "PJM"
	ISOCAISO ISO = "CAISO"
	ISOERCOT ISO = "ERCOT"
	ISONYISO ISO = "NYISO"
	ISONewEngland ISO = "ISONE"
	ISOMISO  ISO = "MISO"
	ISOSPP   ISO = "SPP"

	// Coarse regions used by the state fallback where no organized market exists
	ISOFRCC ISO = "FRCC"
	ISOSERC ISO = "SERC"
	ISOWECC ISO = "WECC"
)

// AllISOs returns all valid ISO/RTO identifiers
func AllISOs() []ISO {
	return []ISO{
		ISOPJM,
		ISOCAISO,
		ISOERCOT,
		ISONYISO,
		ISONewEngland,
		ISOMISO,
		ISOSPP,
		ISOFRCC,
		ISOSERC,
		ISOWECC,
	}
}

// IsValid checks if the ISO identifier is valid
func (s ISO) IsValid() bool {
	switch s {
	case ISOPJM, ISOCAISO, ISOERCOT, ISONYISO, ISONewEngland, ISOMISO, ISOSPP,
		ISOFRCC, ISOSERC, ISOWECC:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ISO
func (s ISO) String() string {
	return string(s)
}

// isoAliases maps normalized utility/BA labels to canonical ISO identifiers
var isoAliases = map[string]ISO{
	"PJM":                                  ISOPJM,
	"PJMINTERCONNECTION":                   ISOPJM,
	"CAISO":                                ISOCAISO,
	"CALIFORNIAISO":                        ISOCAISO,
	"CALIFORNIAINDEPENDENTSYSTEMOPERATOR":  ISOCAISO,
	"NYISO":                                ISONYISO,
	"NEWYORKISO":                           ISONYISO,
	"ISONE":                                ISONewEngland,
	"ISONEWENGLAND":                        ISONewEngland,
	"MISO":                                 ISOMISO,
	"MIDCONTINENTISO":                      ISOMISO,
	"ERCOT":                                ISOERCOT,
	"ELECTRICRELIABILITYCOUNCILOFTEXAS":    ISOERCOT,
	"SPP":                                  ISOSPP,
	"SOUTHWESTPOWERPOOL":                   ISOSPP,
}

// ParseISO resolves a free-form ISO/RTO label (as found in EIA or OpenEI data)
// into a canonical identifier. Hyphens, underscores and spaces are ignored.
func ParseISO(s string) (ISO, error) {
	v := strings.ToUpper(s)
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	if v == "" {
		return "", goerr.New("empty ISO label")
	}
	if iso, ok := isoAliases[v]; ok {
		return iso, nil
	}
	iso := ISO(v)
	if iso.IsValid() {
		return iso, nil
	}
	return "", goerr.New("unknown ISO label", goerr.V("label", s))
}
