package method

import "github.com/quenio/agerun-go/pkg/agerunlog"

func agerunlogDiscard() *agerunlog.Log {
	return agerunlog.NewDiscard()
}
