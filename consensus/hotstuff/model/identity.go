package model

import "fmt"

// ReplicaId is a stable integer identifier in [0, N) for the lifetime of a run.
type ReplicaId uint32

// ViewNumber is a monotonically non-decreasing (per replica) epoch counter.
type ViewNumber uint64

// String renders a replica id for logging.
func (r ReplicaId) String() string {
	return fmt.Sprintf("replica-%d", uint32(r))
}
