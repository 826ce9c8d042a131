package updateenv

import (
	"github.com/Elektrobit/rupdate/pkg/checksum"
	"github.com/Elektrobit/rupdate/pkg/partconfig"
	"github.com/Elektrobit/rupdate/pkg/variant"
)

// NewState builds the initial UpdateState for a freshly provisioned
// device: one PartitionSelection per updateable set in pc, each starting
// on variant A with no rollback or affected bookkeeping, State Normal.
// Grounded on the Rust core::env::UpdateState::new constructor; callers
// persist the result with Environment.Initialize.
func NewState(pc *partconfig.PartitionConfig, hashAlgorithm checksum.Type) *UpdateState {
	sel := make([]PartitionSelection, 0, len(pc.Sets))
	for _, s := range pc.Sets {
		if !pc.IsUpdateable(s.Name.String()) {
			continue
		}
		sel = append(sel, PartitionSelection{Name: s.Name, Active: variant.A})
	}
	return &UpdateState{
		HashAlgorithm:  hashAlgorithm,
		RemainingTries: -1,
		State:          Normal,
		PartSel:        sel,
	}
}
