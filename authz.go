package walletConsent

import "github.com/MrEthical07/walletConsent/internal/stores"

// ConsentAction defines a public type used by walletConsent APIs.
//
// ConsentAction instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ConsentAction int

const (
	// ActionViewConsent is an exported constant or variable used by the consent engine.
	ActionViewConsent ConsentAction = iota
	// ActionRespondConsent is an exported constant or variable used by the consent engine.
	ActionRespondConsent
	// ActionRetractResponse is an exported constant or variable used by the consent engine.
	ActionRetractResponse
	// ActionDeleteConsent is an exported constant or variable used by the consent engine.
	ActionDeleteConsent
)

type authzDecision struct {
	allowed bool
	reason  error
}

// consentCapabilities maps each action to the relationship check that
// authorizes it. All consent operations route through this table; no
// operation performs its own ad-hoc address comparison.
var consentCapabilities = map[ConsentAction]func(caller string, consent *stores.ConsentRecord) authzDecision{
	ActionViewConsent: func(caller string, consent *stores.ConsentRecord) authzDecision {
		if caller == consent.DatasetOwner || caller == consent.AlgorithmOwner || caller == consent.Solicitor {
			return authzDecision{allowed: true}
		}
		return authzDecision{reason: ErrNotParticipant}
	},
	ActionRespondConsent: func(caller string, consent *stores.ConsentRecord) authzDecision {
		if caller == consent.DatasetOwner {
			return authzDecision{allowed: true}
		}
		return authzDecision{reason: ErrNotDatasetOwner}
	},
	ActionRetractResponse: func(caller string, consent *stores.ConsentRecord) authzDecision {
		if caller == consent.DatasetOwner {
			return authzDecision{allowed: true}
		}
		return authzDecision{reason: ErrNotDatasetOwner}
	},
	ActionDeleteConsent: func(caller string, consent *stores.ConsentRecord) authzDecision {
		if caller == consent.Solicitor {
			return authzDecision{allowed: true}
		}
		return authzDecision{reason: ErrNotSolicitor}
	},
}

func (e *Engine) authorize(action ConsentAction, caller string, consent *stores.ConsentRecord) error {
	check, ok := consentCapabilities[action]
	if !ok {
		return ErrNotParticipant
	}

	decision := check(caller, consent)
	if !decision.allowed {
		e.metricInc(MetricAuthzDenied)
		return decision.reason
	}

	return nil
}
